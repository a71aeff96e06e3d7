package middleware

import (
	"github.com/MicahParks/keyfunc/v3"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/rabbitmq/amqp091-go"

	"github.com/traceguard/backend/pkg/assess"
	"github.com/traceguard/backend/pkg/chain"
	"github.com/traceguard/backend/pkg/leaselock"
	"github.com/traceguard/backend/pkg/resolve"
	"github.com/traceguard/backend/pkg/sanctions"
	"github.com/traceguard/backend/pkg/store"
	"github.com/traceguard/backend/pkg/trust"
)

type AppUser struct {
	UserID      int64
	Role        string
	Permissions []string
}

// App bundles the shared infrastructure and domain services handed to every
// request.
type App struct {
	DBConn *pgxpool.Pool
	Queue  *amqp091.Channel
	Key    *keyfunc.Keyfunc
	S3     *s3.Client

	Store    store.Storage
	Resolver *resolve.Service
	Matcher  *sanctions.Matcher
	Engine   *trust.Engine
	Assessor *assess.Service
	Chains   *chain.Builder
	Locks    *leaselock.Client

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
