package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/idealempregos/portal/internal/models"
	"github.com/idealempregos/portal/internal/utils"
)

const (
	msgUnreadableBody      = "Não foi possível interpretar os dados enviados."
	msgUnsupportedContent  = "Tipo de conteúdo não suportado para o cadastro."
	msgUploadTooLarge      = "O envio excede o tamanho máximo permitido."
	resumeField            = "curriculo"
	multipartMemoryPerForm = 8 << 20
)

// candidateJSON accepts the field spellings the different pages of the site
// send. When several spellings are present, the snake_case one wins.
type candidateJSON struct {
	Email    string  `json:"email"`
	Nome     *string `json:"nome"`
	Telefone *string `json:"telefone"`
	Senha    *string `json:"senha"`

	AreaSnake *string `json:"area_interesse"`
	AreaCamel *string `json:"areaInteresse"`
	Area      *string `json:"area"`

	AlertasSnake *flexBool `json:"recebe_alertas"`
	AlertasCamel *flexBool `json:"recebeAlertas"`
	Alertas      *flexBool `json:"alertas"`
}

// flexBool decodes true/false as well as the "sim"/"on"/"1" strings sent by
// form serializers.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case bool:
		*b = flexBool(v)
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "sim", "s", "true", "on", "1", "yes":
			*b = true
		default:
			*b = false
		}
	case float64:
		*b = v != 0
	default:
		*b = false
	}
	return nil
}

// parseSubmission turns either encoding of the registration form into one
// CandidateSubmission. maxBody caps the multipart body.
func parseSubmission(c *gin.Context, maxBody int64) (models.CandidateSubmission, error) {
	const op = "CandidateHandler.parseSubmission"

	switch c.ContentType() {
	case gin.MIMEMultipartPOSTForm:
		return parseMultipart(c, maxBody)
	case gin.MIMEJSON:
		return parseJSON(c)
	default:
		return models.CandidateSubmission{}, utils.E(utils.CodeInvalidArgument, op, msgUnsupportedContent, nil)
	}
}

func parseJSON(c *gin.Context) (models.CandidateSubmission, error) {
	const op = "CandidateHandler.parseJSON"

	var body candidateJSON
	if err := c.ShouldBindJSON(&body); err != nil {
		return models.CandidateSubmission{}, utils.E(utils.CodeInvalidArgument, op, msgUnreadableBody, err)
	}

	sub := models.CandidateSubmission{
		Email:         strings.TrimSpace(body.Email),
		Nome:          body.Nome,
		Telefone:      body.Telefone,
		Senha:         body.Senha,
		AreaInteresse: firstString(body.AreaSnake, body.AreaCamel, body.Area),
	}
	if body.AlertasSnake != nil || body.AlertasCamel != nil || body.Alertas != nil {
		on := isTrue(body.AlertasSnake) || isTrue(body.AlertasCamel) || isTrue(body.Alertas)
		sub.RecebeAlertas = &on
	}
	return sub, nil
}

func parseMultipart(c *gin.Context, maxBody int64) (models.CandidateSubmission, error) {
	const op = "CandidateHandler.parseMultipart"

	if maxBody > 0 {
		if c.Request.ContentLength > maxBody {
			return models.CandidateSubmission{}, utils.E(utils.CodeInvalidArgument, op, msgUploadTooLarge, nil)
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBody)
	}
	if err := c.Request.ParseMultipartForm(multipartMemoryPerForm); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return models.CandidateSubmission{}, utils.E(utils.CodeInvalidArgument, op, msgUploadTooLarge, err)
		}
		return models.CandidateSubmission{}, utils.E(utils.CodeInvalidArgument, op, msgUnreadableBody, err)
	}
	form := c.Request.MultipartForm

	value := func(keys ...string) *string {
		for _, k := range keys {
			if vs, ok := form.Value[k]; ok && len(vs) > 0 {
				v := strings.TrimSpace(vs[0])
				return &v
			}
		}
		return nil
	}

	sub := models.CandidateSubmission{
		Nome:           value("nome"),
		Telefone:       value("telefone"),
		AreaInteresse:  value("area", "area_interesse"),
		Senha:          value("senha"),
		ResumeRequired: true,
	}
	if email := value("email"); email != nil {
		sub.Email = *email
	}

	// unchecked checkboxes are not sent at all, so absence means "no"
	alertas := value("alertas")
	on := alertas != nil && *alertas == "sim"
	sub.RecebeAlertas = &on

	if files := form.File[resumeField]; len(files) > 0 && files[0].Filename != "" {
		sub.Resume = resumeUpload(files[0])
	}
	return sub, nil
}

func resumeUpload(fh *multipart.FileHeader) *models.ResumeUpload {
	return &models.ResumeUpload{
		FileName: fh.Filename,
		Size:     fh.Size,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

func firstString(ps ...*string) *string {
	for _, p := range ps {
		if p != nil {
			return p
		}
	}
	return nil
}

func isTrue(b *flexBool) bool { return b != nil && bool(*b) }
