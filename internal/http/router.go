package httpserver

import "net/http"

// Routes groups handlers.
type Routes struct {
	Health           http.HandlerFunc
	Signup           http.HandlerFunc
	Login            http.HandlerFunc
	Stations         http.HandlerFunc
	UpsertStation    http.HandlerFunc
	StationSnapshot  http.HandlerFunc
	OpenRentals      http.HandlerFunc
	MissingBatteries http.HandlerFunc
	BatteryReturn    http.HandlerFunc
	ReconcileNow     http.HandlerFunc
	SnapshotFeed     http.HandlerFunc

	// AuthMiddleware wraps every route except health, login and the feed.
	AuthMiddleware func(http.Handler) http.Handler
}

// NewRouter registers endpoints.
func NewRouter(routes Routes) http.Handler {
	mux := http.NewServeMux()

	protect := func(handler http.Handler) http.Handler {
		if routes.AuthMiddleware != nil {
			return routes.AuthMiddleware(handler)
		}
		return handler
	}

	if routes.Health != nil {
		mux.Handle("/health", method(http.MethodGet, routes.Health))
	}
	if routes.Signup != nil {
		mux.Handle("/auth/signup", method(http.MethodPost, routes.Signup))
	}
	if routes.Login != nil {
		mux.Handle("/auth/login", method(http.MethodPost, routes.Login))
	}
	if routes.Stations != nil || routes.UpsertStation != nil {
		mux.Handle("/stations", protect(methods(map[string]http.HandlerFunc{
			http.MethodGet:  routes.Stations,
			http.MethodPost: routes.UpsertStation,
		})))
	}
	if routes.StationSnapshot != nil {
		mux.Handle("/stations/snapshot", protect(method(http.MethodGet, routes.StationSnapshot)))
	}
	if routes.OpenRentals != nil {
		mux.Handle("/rentals/open", protect(method(http.MethodGet, routes.OpenRentals)))
	}
	if routes.MissingBatteries != nil {
		mux.Handle("/batteries/missing", protect(method(http.MethodGet, routes.MissingBatteries)))
	}
	if routes.BatteryReturn != nil {
		mux.Handle("/internal/events/return", protect(method(http.MethodPost, routes.BatteryReturn)))
	}
	if routes.ReconcileNow != nil {
		mux.Handle("/internal/reconcile", protect(method(http.MethodPost, routes.ReconcileNow)))
	}
	if routes.SnapshotFeed != nil {
		mux.Handle("/ws/snapshots", method(http.MethodGet, routes.SnapshotFeed))
	}
	return mux
}

func method(expected string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != expected {
			w.Header().Set("Allow", expected)
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		handler(w, r)
	}
}

func methods(handlers map[string]http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if handler := handlers[r.Method]; handler != nil {
			handler(w, r)
			return
		}
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}
