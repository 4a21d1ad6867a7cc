package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/idealempregos/portal/internal/services"
)

type CandidateHandler struct {
	svc     services.CandidateService
	maxBody int64
}

// NewCandidateHandler builds the registration handler. maxUpload is the resume
// limit; the multipart body may exceed it by the size of the text fields.
func NewCandidateHandler(svc services.CandidateService, maxUpload int64) *CandidateHandler {
	maxBody := int64(0)
	if maxUpload > 0 {
		maxBody = maxUpload + 1<<20
	}
	return &CandidateHandler{svc: svc, maxBody: maxBody}
}

func (h *CandidateHandler) Save(c *gin.Context) {
	sub, err := parseSubmission(c, h.maxBody)
	if err != nil {
		writeError(c, err)
		return
	}

	cand, err := h.svc.Upsert(c.Request.Context(), sub)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"candidate": cand,
		"message":   "Cadastro salvo com sucesso.",
	})
}

func (h *CandidateHandler) Get(c *gin.Context) {
	cand, err := h.svc.GetByEmail(c.Request.Context(), c.Param("email"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"candidate": cand})
}
