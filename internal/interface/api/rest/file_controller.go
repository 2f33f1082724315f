package rest

import (
	"errors"
	"mime"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"file-upload-api/internal/application/ports"
	"file-upload-api/internal/application/services"
	"file-upload-api/internal/domain/alias"
	domainFile "file-upload-api/internal/domain/file"
	"file-upload-api/internal/domain/format"
	"file-upload-api/internal/infrastructure/jwt"
	dto "file-upload-api/internal/interface/api/rest/dto/file"
	"file-upload-api/internal/interface/api/rest/middleware"
	"file-upload-api/internal/interface/api/rest/validator"
)

const (
	formFile    = "file"
	formFileURL = "file-url"

	assetCacheControl = "public, max-age=86400"
)

// AliasCatalog exposes the configured alias policies.
type AliasCatalog interface {
	Resolve(name string) (alias.Policy, error)
	FormattersFor(name string) ([]string, error)
}

type FileController struct {
	uploads   ports.UploadService
	retrieval ports.RetrievalService
	files     ports.FileService
	manager   ports.FileManager
	aliases   AliasCatalog
	logger    *zap.Logger
}

func NewFileController(
	r gin.IRouter,
	uploads ports.UploadService,
	retrieval ports.RetrievalService,
	files ports.FileService,
	manager ports.FileManager,
	aliases AliasCatalog,
	logger *zap.Logger,
	jwtService *jwt.Service,
	cacheBasePath string,
) *FileController {
	fc := &FileController{
		uploads:   uploads,
		retrieval: retrieval,
		files:     files,
		manager:   manager,
		aliases:   aliases,
		logger:    logger,
	}

	auth := middleware.AuthMiddleware(jwtService)
	for _, route := range []string{RouteUpload, RouteUploadAlias, RouteUploadOwner} {
		r.Match([]string{http.MethodGet, http.MethodPost}, route, auth, fc.UploadHandler)
	}
	r.GET(RouteGet, fc.GetHandler)
	r.GET(strings.TrimRight(cacheBasePath, "/")+"/*path", fc.AssetHandler)
	r.GET(RouteFiles, auth, fc.ListHandler)
	r.DELETE(RouteFile, auth, fc.DeleteHandler)

	return fc
}

// UploadHandler answers 200 for every processed upload: a failure is reported in the body.
func (fc *FileController) UploadHandler(c *gin.Context) {
	aliasName, err := validator.ValidateAlias(firstNonEmpty(c.Param("alias"), c.Query("alias"), c.PostForm("alias")))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ownerID, err := validator.ParseOwnerID(firstNonEmpty(c.Param("id"), c.Query("id"), c.PostForm("id")))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be a positive integer"})
		return
	}
	if !middleware.AllowsAlias(c, aliasName) {
		c.JSON(http.StatusForbidden, gin.H{"error": services.ErrForbiddenAlias.Error()})
		return
	}

	ctx := c.Request.Context()
	var res ports.UploadResult
	if fh, ferr := c.FormFile(formFile); ferr == nil {
		res = fc.uploads.UploadMultipart(ctx, aliasName, ownerID, fh)
	} else if rawURL := firstNonEmpty(c.PostForm(formFileURL), c.Query(formFileURL)); rawURL != "" {
		res = fc.uploads.UploadFromURL(ctx, aliasName, ownerID, rawURL)
	} else {
		res = fc.uploads.UploadMultipart(ctx, aliasName, ownerID, nil)
	}

	if res.Failure != nil {
		c.JSON(http.StatusOK, dto.UploadFailure{
			Name:  res.Failure.Name,
			Size:  res.Failure.Size,
			Error: res.Failure.Error,
		})
		return
	}

	items, err := fc.manager.FileDataList(ctx, res.Files)
	if err != nil {
		fc.logger.Error("FileDataList() error", zap.Error(err))
		c.JSON(http.StatusOK, uploadedButUndescribed(res.Files))
		return
	}

	c.JSON(http.StatusOK, dto.UploadResponse{Files: items})
}

// uploadedButUndescribed reports stored files whose links could not be built
// in the same failure shape as a rejected upload.
func uploadedButUndescribed(fs domainFile.Files) dto.UploadFailure {
	var failure dto.UploadFailure
	for _, f := range fs {
		if failure.Name == "" {
			failure.Name = f.FullName()
		}
		failure.Size += f.Size
	}
	failure.Error = services.DefaultErrorMessage
	return failure
}

func (fc *FileController) GetHandler(c *gin.Context) {
	id, err := validator.ParseID(c.Query("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	a, err := fc.retrieval.Retrieve(c.Request.Context(), id, c.Query("fileType"))
	if err != nil {
		fc.retrievalError(c, "Retrieve", err)
		return
	}

	writeAsset(c, a)
}

func (fc *FileController) AssetHandler(c *gin.Context) {
	a, err := fc.retrieval.Asset(c.Request.Context(), strings.TrimPrefix(c.Param("path"), "/"))
	if err != nil {
		fc.retrievalError(c, "Asset", err)
		return
	}

	c.Header("Cache-Control", assetCacheControl)
	writeAsset(c, a)
}

func (fc *FileController) ListHandler(c *gin.Context) {
	aliasName, err := validator.ValidateAlias(c.Query("alias"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ownerID, err := validator.ParseID(c.Query("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !middleware.AllowsAlias(c, aliasName) {
		c.JSON(http.StatusForbidden, gin.H{"error": services.ErrForbiddenAlias.Error()})
		return
	}

	policy, err := fc.aliases.Resolve(aliasName)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown alias"})
		return
	}
	formatters, err := fc.aliases.FormattersFor(aliasName)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown alias"})
		return
	}

	ctx := c.Request.Context()
	files, err := fc.files.ListOwnerFiles(ctx, aliasName, ownerID)
	if err != nil {
		c.JSON(
			http.StatusInternalServerError,
			gin.H{"error": "failed to get files"},
		)
		fc.logger.Error("ListOwnerFiles() error", zap.Error(err))
		return
	}
	items, err := fc.manager.FileDataList(ctx, files)
	if err != nil {
		c.JSON(
			http.StatusInternalServerError,
			gin.H{"error": "failed to get files"},
		)
		fc.logger.Error("FileDataList() error", zap.Error(err))
		return
	}

	c.JSON(http.StatusOK, dto.ListResponse{
		Alias:      policy.Name,
		OwnerID:    ownerID,
		MaxCount:   policy.MaxCount,
		Formatters: formatters,
		Data:       items,
	})
}

func (fc *FileController) DeleteHandler(c *gin.Context) {
	id, err := validator.ParseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	f, err := fc.files.Get(ctx, id)
	if err != nil {
		fc.retrievalError(c, "Get", err)
		return
	}
	if !middleware.AllowsAlias(c, f.Alias) {
		c.JSON(http.StatusForbidden, gin.H{"error": services.ErrForbiddenAlias.Error()})
		return
	}

	if err = fc.files.LazyDelete(ctx, id); err != nil {
		fc.retrievalError(c, "LazyDelete", err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (fc *FileController) retrievalError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
	case errors.Is(err, format.ErrUnsupportedContent):
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": "format is not supported for this file"})
	default:
		c.JSON(
			http.StatusInternalServerError,
			gin.H{"error": "failed to get file"},
		)
		fc.logger.Error(op+"() error", zap.Error(err))
	}
}

func writeAsset(c *gin.Context, a *ports.Asset) {
	defer a.Body.Close()

	contentType := a.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	headers := map[string]string{}
	if a.Disposition != "" {
		disposition := a.Disposition
		if a.FileName != "" {
			if v := mime.FormatMediaType(a.Disposition, map[string]string{"filename": a.FileName}); v != "" {
				disposition = v
			}
		}
		headers["Content-Disposition"] = disposition
	}

	c.DataFromReader(http.StatusOK, a.Size, contentType, a.Body, headers)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
