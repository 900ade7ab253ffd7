package api

import (
	"log"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/jogakzip/jogakzip-server/cmd/utils"
	"github.com/jogakzip/jogakzip-server/service/comment"
	"github.com/jogakzip/jogakzip-server/service/group"
	"github.com/jogakzip/jogakzip-server/service/image"
	"github.com/jogakzip/jogakzip-server/service/post"
	"gorm.io/gorm"
)

type APIServer struct {
	address string
	db      *gorm.DB
}

func NewApiServer(address string, db *gorm.DB) *APIServer {
	return &APIServer{
		address: address,
		db:      db,
	}
}

func (s *APIServer) Run() error {
	router := mux.NewRouter()
	subrouter := router.PathPrefix("/api").Subrouter()

	groupHandler := group.NewHandler(s.db, utils.PlaintextComparer)
	groupHandler.RegisterRoutes(subrouter)

	postHandler := post.NewHandler(s.db, utils.PlaintextComparer)
	postHandler.RegisterRoutes(subrouter)

	commentHandler := comment.NewHandler(s.db, utils.PlaintextComparer)
	commentHandler.RegisterRoutes(subrouter)

	imageHandler := image.NewHandler()
	imageHandler.RegisterRoutes(subrouter)

	fileServer := http.FileServer(http.Dir(utils.UploadPath))
	router.PathPrefix("/uploads/").Handler(http.StripPrefix("/uploads/", fileServer))

	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)

	log.Println("Server running at", s.address)
	return http.ListenAndServe(s.address, cors(router))
}
