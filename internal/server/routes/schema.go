package routes

import (
	"net/http"

	"github.com/OFFIS-RIT/bibliograph/internal/server/middleware"
	"github.com/OFFIS-RIT/bibliograph/pkg/common"
	"github.com/OFFIS-RIT/bibliograph/pkg/logger"

	"github.com/invopop/jsonschema"
	"github.com/labstack/echo/v4"
)

var snapshotSchema = jsonschema.Reflect(&common.Snapshot{})

// GetSnapshotSchemaHandler serves the JSON schema of exported snapshots.
func GetSnapshotSchemaHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, snapshotSchema)
}

// ExportStoreHandler returns the full snapshot of a store.
func ExportStoreHandler(c echo.Context) error {
	info, ok, err := getStore(c)
	if !ok {
		return err
	}
	snap, err := c.(*middleware.AppContext).App.Storage.LoadSnapshot(c.Request().Context(), info.ID)
	if err != nil {
		logger.Error("[Server][Export] Failed to load snapshot", "store", info.ID, "err", err)
		return errorJSON(c, http.StatusInternalServerError, "Internal server error")
	}
	return c.JSON(http.StatusOK, snap)
}
