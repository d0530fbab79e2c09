package pressure

import (
	"net/http"

	"pressuredash/internal/modules/pressure/controller"
	"pressuredash/internal/modules/pressure/repository"
)

func RegisterFeature(mux *http.ServeMux, service controller.SnapshotSource, snapshotRepository repository.SnapshotRepository) {
	pressureController := controller.NewPressureController(service, snapshotRepository)
	pressureController.RegisterRoutes(mux)
}
