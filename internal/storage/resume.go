package storage

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/idealempregos/portal/internal/models"
	"github.com/idealempregos/portal/internal/utils"
)

const (
	UploadsPrefix = "uploads/"

	msgResumeStoreDown = "Não foi possível salvar o currículo no momento."

	DefaultMaxResumeBytes = 10 << 20
	sniffLen              = 3072
)

// AllowedResumeTypes maps accepted extensions to the content type stored with
// the object.
var AllowedResumeTypes = map[string]string{
	"pdf":  "application/pdf",
	"doc":  "application/msword",
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"odt":  "application/vnd.oasis.opendocument.text",
	"rtf":  "application/rtf",
}

var executableTypes = []string{
	"application/vnd.microsoft.portable-executable",
	"application/x-msdownload",
	"application/x-elf",
	"application/x-executable",
	"application/x-sharedlib",
	"application/x-mach-binary",
}

var (
	errTooLarge = errors.New("resume exceeds size limit")
	unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)
)

// ResumeSink validates uploaded resumes and writes them under a name derived
// from the candidate's e-mail, so a new upload replaces the previous one.
type ResumeSink struct {
	uploader Uploader
	maxBytes int64
}

func NewResumeSink(u Uploader, maxBytes int64) *ResumeSink {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxResumeBytes
	}
	return &ResumeSink{uploader: u, maxBytes: maxBytes}
}

// Store saves upload for candidateEmail and returns the relative path to keep
// on the candidate row. A file left behind under another extension is the
// caller's to Remove once the row points at the new path.
func (s *ResumeSink) Store(ctx context.Context, candidateEmail string, upload *models.ResumeUpload) (string, error) {
	const op = "ResumeSink.Store"

	if upload == nil || upload.Open == nil {
		return "", utils.E(utils.CodeInvalidArgument, op, "Envie o arquivo do currículo.", nil)
	}

	ext, err := ResumeExtension(upload.FileName)
	if err != nil {
		return "", err
	}
	if upload.Size > s.maxBytes {
		return "", s.tooLarge(op)
	}

	f, err := upload.Open()
	if err != nil {
		return "", utils.E(utils.CodeInternal, op, "Não foi possível ler o currículo enviado.", err)
	}
	defer f.Close()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", utils.E(utils.CodeInternal, op, "Não foi possível ler o currículo enviado.", err)
	}
	head = head[:n]
	if n == 0 {
		return "", utils.E(utils.CodeInvalidArgument, op, "O currículo enviado está vazio.", nil)
	}
	if isExecutable(head) {
		return "", utils.E(utils.CodeInvalidArgument, op, "O conteúdo do currículo não corresponde a um documento aceito.", nil)
	}

	body := &limitedReader{r: io.MultiReader(bytes.NewReader(head), f), remaining: s.maxBytes}
	objectName := ResumeObjectName(candidateEmail, ext)

	stored, err := s.uploader.Upload(ctx, objectName, AllowedResumeTypes[ext], body)
	if err != nil {
		if errors.Is(err, errTooLarge) {
			return "", s.tooLarge(op)
		}
		return "", utils.E(utils.CodeUnavailable, op, msgResumeStoreDown, err)
	}

	return stored, nil
}

// Remove deletes a stored resume. Paths outside the uploads prefix are ignored.
func (s *ResumeSink) Remove(ctx context.Context, path string) error {
	const op = "ResumeSink.Remove"

	if !strings.HasPrefix(path, UploadsPrefix) {
		return nil
	}
	if err := s.uploader.Remove(ctx, path); err != nil {
		return utils.E(utils.CodeUnavailable, op, msgResumeStoreDown, err)
	}
	return nil
}

func (s *ResumeSink) tooLarge(op string) error {
	return utils.E(utils.CodeInvalidArgument, op,
		fmt.Sprintf("O currículo deve ter no máximo %d MB.", s.maxBytes>>20), errTooLarge)
}

// ResumeExtension returns the lower-cased extension of name when it is on the
// allow-list.
func ResumeExtension(name string) (string, error) {
	name = strings.ReplaceAll(strings.TrimSpace(name), "\x00", "")
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if _, ok := AllowedResumeTypes[ext]; !ok {
		return "", utils.E(utils.CodeInvalidArgument, "ResumeSink.Store",
			"Formato de currículo não suportado. Envie PDF, DOC, DOCX, ODT ou RTF.", nil)
	}
	return ext, nil
}

// ResumeObjectName is stable per e-mail; the hash suffix keeps e-mails that
// sanitize to the same slug apart.
func ResumeObjectName(email, ext string) string {
	sum := sha256.Sum256([]byte(email))
	slug := unsafeChars.ReplaceAllString(email, "_")
	if slug == "" {
		slug = "curriculo"
	}
	return fmt.Sprintf("%s%s-%s.%s", UploadsPrefix, slug, hex.EncodeToString(sum[:4]), ext)
}

func isExecutable(head []byte) bool {
	mt := mimetype.Detect(head)
	for m := mt; m != nil; m = m.Parent() {
		for _, blocked := range executableTypes {
			if m.Is(blocked) {
				return true
			}
		}
	}
	return false
}

type limitedReader struct {
	r         io.Reader
	remaining int64
}

func (l *limitedReader) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	if l.remaining < 0 {
		return n, errTooLarge
	}
	return n, err
}
