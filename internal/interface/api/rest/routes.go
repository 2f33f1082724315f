package rest

const (
	// upload
	RouteUpload      = "/upload"
	RouteUploadAlias = RouteUpload + "/:alias"
	RouteUploadOwner = RouteUploadAlias + "/:id"

	// retrieval
	RouteGet = "/get"

	// files
	RouteFiles = "/files"
	RouteFile  = RouteFiles + "/:id"

	// ops
	RouteHealth  = "/healthz"
	RouteMetrics = "/metrics"
)
