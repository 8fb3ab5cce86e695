package routes

import (
	"encoding/json"
	"net/http"

	"github.com/OFFIS-RIT/bibliograph/internal/queue"
	"github.com/OFFIS-RIT/bibliograph/internal/server/middleware"
	"github.com/OFFIS-RIT/bibliograph/pkg/graph"
	"github.com/OFFIS-RIT/bibliograph/pkg/loader"
	"github.com/OFFIS-RIT/bibliograph/pkg/logger"
	"github.com/OFFIS-RIT/bibliograph/pkg/shorthand"
	"github.com/OFFIS-RIT/bibliograph/pkg/store"

	"github.com/labstack/echo/v4"
)

type compileBody struct {
	Files             []queue.CompileFile `json:"files" validate:"required,min=1,dive"`
	Options           shorthand.Options   `json:"options"`
	Generators        map[string]string   `json:"generators"`
	ExcludedLinkTypes []string            `json:"excluded_link_types"`
}

// checkCompileBody rejects requests the worker would fail on without
// touching the inputs.
func checkCompileBody(data *compileBody) string {
	entrySyntaxes := 0
	for _, f := range data.Files {
		ft, err := loader.ParseGraphFileType(f.Type)
		if err != nil {
			return err.Error()
		}
		if ft == loader.GraphFileTypeEntrySyntax {
			entrySyntaxes++
		}
	}
	if entrySyntaxes != 1 {
		return "Exactly one entry_syntax file is required"
	}
	known := make(map[string]struct{})
	for _, n := range graph.GeneratorNames() {
		known[n] = struct{}{}
	}
	for nodeType, name := range data.Generators {
		if _, ok := known[name]; !ok {
			return "Unknown alias generator " + name + " for node type " + nodeType
		}
	}
	return ""
}

// CompileStoreHandler queues a rebuild of the store from uploaded inputs.
func CompileStoreHandler(c echo.Context) error {
	info, ok, err := getStore(c)
	if !ok {
		return err
	}

	data := new(compileBody)
	if err := c.Bind(data); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(data); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request body")
	}
	if msg := checkCompileBody(data); msg != "" {
		return errorJSON(c, http.StatusBadRequest, msg)
	}

	msg := queue.CompileMsg{
		StoreID:           info.ID,
		Files:             data.Files,
		Options:           data.Options,
		Generators:        data.Generators,
		ExcludedLinkTypes: data.ExcludedLinkTypes,
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, "Internal server error")
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App
	if err := app.Storage.SetStatus(ctx, info.ID, store.StatusPending); err != nil {
		logger.Error("[Server][Compile] Failed to mark store pending", "store", info.ID, "err", err)
		return errorJSON(c, http.StatusInternalServerError, "Internal server error")
	}
	if err := queue.PublishFIFO(app.Queue, queue.CompileQueue, body); err != nil {
		logger.Error("[Server][Compile] Failed to queue compile", "store", info.ID, "err", err)
		return errorJSON(c, http.StatusInternalServerError, "Internal server error")
	}

	info.Status = store.StatusPending
	return c.JSON(http.StatusAccepted, info)
}
