package routes

import (
	"net/http"

	"github.com/OFFIS-RIT/bibliograph/internal/queue"
	"github.com/OFFIS-RIT/bibliograph/internal/server/middleware"
	"github.com/OFFIS-RIT/bibliograph/pkg/loader"
	"github.com/OFFIS-RIT/bibliograph/pkg/logger"

	"github.com/labstack/echo/v4"
)

// AddFilesToStoreHandler uploads compile inputs from multipart/form-data.
// Every part of "files" is stored with the form's type, node_type and
// entry_prefix; the response lists them ready to be sent to the compile
// endpoint.
func AddFilesToStoreHandler(c echo.Context) error {
	type addFilesBody struct {
		Type        string `form:"type" validate:"required"`
		NodeType    string `form:"node_type"`
		EntryPrefix string `form:"entry_prefix"`
	}

	info, ok, err := getStore(c)
	if !ok {
		return err
	}

	data := new(addFilesBody)
	if err := c.Bind(data); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(data); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request body")
	}
	ft, err := loader.ParseGraphFileType(data.Type)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}
	if ft == loader.GraphFileTypeAlias && data.NodeType == "" {
		return errorJSON(c, http.StatusBadRequest, "Alias files need a node_type")
	}

	form, err := c.MultipartForm()
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request body")
	}
	uploads := form.File["files"]
	if len(uploads) == 0 {
		return errorJSON(c, http.StatusBadRequest, "No files given")
	}

	ctx := c.Request().Context()
	inputs := c.(*middleware.AppContext).App.Inputs
	files := make([]queue.CompileFile, 0, len(uploads))
	for _, file := range uploads {
		src, err := file.Open()
		if err != nil {
			return errorJSON(c, http.StatusBadRequest, "Invalid request body")
		}
		key, err := inputs.PutInput(ctx, info.ID, file.Filename, src)
		src.Close()
		if err != nil {
			logger.Error("[Server][Files] Failed to store upload", "store", info.ID, "file", file.Filename, "err", err)
			return errorJSON(c, http.StatusInternalServerError, "Internal server error")
		}
		files = append(files, queue.CompileFile{
			Key:         key,
			Type:        string(ft),
			NodeType:    data.NodeType,
			EntryPrefix: data.EntryPrefix,
		})
	}

	return c.JSON(http.StatusCreated, files)
}
