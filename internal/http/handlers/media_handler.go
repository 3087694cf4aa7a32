package handlers

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vyvozim/hauling-backend/internal/http/handlers/common"
	"github.com/vyvozim/hauling-backend/internal/pkg/apperror"
	"github.com/vyvozim/hauling-backend/internal/storage"
)

// MediaHandler управляет загрузкой документов исполнителей.
type MediaHandler struct {
	storage *storage.MediaStorage
}

// NewMediaHandler создаёт новый хэндлер.
func NewMediaHandler(st *storage.MediaStorage) *MediaHandler {
	return &MediaHandler{storage: st}
}

// UploadDocument обрабатывает POST /media/documents.
// Принимает скан или фото документа и возвращает путь в хранилище, который
// затем передаётся в регистрацию исполнителя.
func (h *MediaHandler) UploadDocument(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.FailUnauthorized(c)
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		common.Fail(c, apperror.Validation("поле file обязательно", nil))
		return
	}
	if file.Size == 0 {
		common.Fail(c, apperror.Validation("файл не может быть пустым", nil))
		return
	}

	src, err := file.Open()
	if err != nil {
		common.Fail(c, err)
		return
	}
	defer src.Close()

	path, mime, size, err := h.storage.Save(c.Request.Context(), userID, file.Filename, src)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrUnsupportedFileType):
			common.Fail(c, apperror.Validation("неподдерживаемый тип файла", map[string]string{
				"file": "допускаются JPEG, PNG, HEIF и PDF",
			}))
		case errors.Is(err, storage.ErrFileTooLarge):
			common.Fail(c, apperror.Validation("файл слишком большой", nil))
		default:
			common.Fail(c, err)
		}
		return
	}

	common.Respond(c, http.StatusCreated, gin.H{
		"path":      path,
		"mime_type": mime,
		"size":      size,
	})
}

// GetDocument обрабатывает GET /media/documents/*path.
// Пользователь видит только свои файлы: путь в хранилище начинается
// с его идентификатора.
func (h *MediaHandler) GetDocument(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.FailUnauthorized(c)
		return
	}

	relative := strings.TrimPrefix(c.Param("path"), "/")
	if relative == "" {
		common.Fail(c, apperror.Validation("путь к файлу обязателен", nil))
		return
	}

	if !strings.HasPrefix(filepath.ToSlash(relative), userID.String()+"/") {
		common.Fail(c, apperror.ErrForbidden)
		return
	}

	f, err := h.storage.Open(c.Request.Context(), relative)
	if err != nil {
		common.Fail(c, apperror.New(apperror.ErrCodeNotFound, "файл не найден"))
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		common.Fail(c, err)
		return
	}

	http.ServeContent(c.Writer, c.Request, filepath.Base(relative), info.ModTime(), f)
}
