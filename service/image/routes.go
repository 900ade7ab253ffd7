package image

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/jogakzip/jogakzip-server/cmd/utils"
)

type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/image", h.UploadImage).Methods("POST")
}

// UploadImage stores a single multipart image and returns the fully
// qualified URL clients put into imageUrl fields.
func (h *Handler) UploadImage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(utils.MaxImageSize); err != nil {
		http.Error(w, "Error parsing form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		http.Error(w, "Image file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	imagePath, err := utils.SaveImage(file, header)
	if err != nil {
		log.Printf("Error saving image: %v", err)
		http.Error(w, "Error saving image", http.StatusInternalServerError)
		return
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	imageUrl := fmt.Sprintf("%s://%s%s", scheme, r.Host, imagePath)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"imageUrl": imageUrl,
	})
}
