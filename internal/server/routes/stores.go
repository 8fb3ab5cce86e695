package routes

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/OFFIS-RIT/bibliograph/internal/queue"
	"github.com/OFFIS-RIT/bibliograph/internal/server/middleware"
	"github.com/OFFIS-RIT/bibliograph/internal/util"
	"github.com/OFFIS-RIT/bibliograph/pkg/logger"
	"github.com/OFFIS-RIT/bibliograph/pkg/store"

	"github.com/labstack/echo/v4"
)

func errorJSON(c echo.Context, code int, msg string) error {
	return c.JSON(code, map[string]string{"error": msg})
}

// getStore looks up the store named by the :id param. It writes the
// response itself when it returns ok == false.
func getStore(c echo.Context) (store.Info, bool, error) {
	id := c.Param("id")
	if id == "" {
		return store.Info{}, false, errorJSON(c, http.StatusBadRequest, "Invalid request params")
	}
	if !util.IsID(id) {
		return store.Info{}, false, errorJSON(c, http.StatusNotFound, "Store not found")
	}

	storage := c.(*middleware.AppContext).App.Storage
	info, err := storage.GetStore(c.Request().Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		return store.Info{}, false, errorJSON(c, http.StatusNotFound, "Store not found")
	}
	if err != nil {
		logger.Error("[Server][Store] Failed to load store", "store", id, "err", err)
		return store.Info{}, false, errorJSON(c, http.StatusInternalServerError, "Internal server error")
	}
	return info, true, nil
}

func GetStoresHandler(c echo.Context) error {
	storage := c.(*middleware.AppContext).App.Storage
	stores, err := storage.ListStores(c.Request().Context())
	if err != nil {
		logger.Error("[Server][Store] Failed to list stores", "err", err)
		return errorJSON(c, http.StatusInternalServerError, "Internal server error")
	}
	return c.JSON(http.StatusOK, stores)
}

func GetStoreHandler(c echo.Context) error {
	info, ok, err := getStore(c)
	if !ok {
		return err
	}
	return c.JSON(http.StatusOK, info)
}

func CreateStoreHandler(c echo.Context) error {
	type createStoreBody struct {
		Name string `json:"name" validate:"required,max=200"`
	}

	data := new(createStoreBody)
	if err := c.Bind(data); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(data); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request body")
	}
	name := util.SanitizeName(data.Name)
	if name == "" {
		return errorJSON(c, http.StatusBadRequest, "Store name is empty")
	}

	storage := c.(*middleware.AppContext).App.Storage
	info, err := storage.CreateStore(c.Request().Context(), name)
	if err != nil {
		logger.Error("[Server][Store] Failed to create store", "err", err)
		return errorJSON(c, http.StatusInternalServerError, "Internal server error")
	}
	return c.JSON(http.StatusCreated, info)
}

// DeleteStoreHandler queues the store for deletion. The worker removes the
// snapshot and the uploaded inputs.
func DeleteStoreHandler(c echo.Context) error {
	info, ok, err := getStore(c)
	if !ok {
		return err
	}

	body, err := json.Marshal(queue.DeleteMsg{StoreID: info.ID})
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, "Internal server error")
	}
	ch := c.(*middleware.AppContext).App.Queue
	if err := queue.PublishFIFO(ch, queue.DeleteQueue, body); err != nil {
		logger.Error("[Server][Store] Failed to queue delete", "store", info.ID, "err", err)
		return errorJSON(c, http.StatusInternalServerError, "Internal server error")
	}
	return c.JSON(http.StatusAccepted, map[string]string{"message": "Store deletion queued"})
}
