package middleware

import (
	"context"
	"io"

	"github.com/OFFIS-RIT/bibliograph/internal/queue"
	"github.com/OFFIS-RIT/bibliograph/pkg/store"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/labstack/echo/v4"
)

type AppUser struct {
	UserID      int64
	Role        string
	Permissions []string
}

// InputUploader stores uploaded compile inputs.
type InputUploader interface {
	PutInput(ctx context.Context, storeID, name string, body io.Reader) (string, error)
}

type App struct {
	Storage store.Storage
	Queue   queue.Publisher
	Inputs  InputUploader
	// Key verifies bearer tokens. Without it only the master API key is
	// accepted.
	Key            keyfunc.Keyfunc
	MasterAPIKey   string
	MasterUserID   int64
	MasterUserRole string
}

type AppContext struct {
	echo.Context
	App  *App
	User *AppUser
}

func AppContextMiddleware(app *App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cc := &AppContext{c, app, nil}
			return next(cc)
		}
	}
}
