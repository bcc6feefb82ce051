package internal

import (
	"net/http"

	"fastd/internal/controllers"
	"fastd/internal/providers"
	"fastd/internal/structures"
)

func InitRoutes(apiController *controllers.ApiController, conf *structures.Config) providers.RouterProviderInterface {
	routers := providers.NewRouterProvider()

	routers.Post("/fast/start", http.HandlerFunc(apiController.StartFast))
	routers.Post("/fast/stop", http.HandlerFunc(apiController.StopFast))
	routers.Put("/fast/active/start", http.HandlerFunc(apiController.EditActiveStart))
	routers.Get("/fast/status", http.HandlerFunc(apiController.GetStatus))

	routers.Get("/sessions", http.HandlerFunc(apiController.GetSessions))
	routers.Post("/sessions", http.HandlerFunc(apiController.BackfillSession))
	routers.Put("/session", http.HandlerFunc(apiController.EditSession))
	routers.Delete("/session", http.HandlerFunc(apiController.DeleteSession))

	routers.Get("/streaks", http.HandlerFunc(apiController.GetStreaks))
	routers.Get("/goal", http.HandlerFunc(apiController.GetGoal))
	routers.Put("/goal", http.HandlerFunc(apiController.SetGoal))

	routers.Post("/sync/import", http.HandlerFunc(apiController.SyncImport))
	routers.Post("/reset", http.HandlerFunc(apiController.FullReset))

	routers.Get("/tracker", http.HandlerFunc(apiController.GetTracker))
	routers.Post("/tracker", http.HandlerFunc(apiController.AddTrackerEntry))
	routers.Delete("/tracker/entry", http.HandlerFunc(apiController.DeleteTrackerEntry))

	return routers
}
