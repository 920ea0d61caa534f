package app

const (
	ServiceName = "library-service"
	Version     = "1.0.0"
)
