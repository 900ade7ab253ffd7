package comment

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/jogakzip/jogakzip-server/cmd/models"
	"github.com/jogakzip/jogakzip-server/cmd/utils"
	"gorm.io/gorm"
)

type Handler struct {
	db     *gorm.DB
	verify utils.PasswordComparer
}

func NewHandler(db *gorm.DB, verify utils.PasswordComparer) *Handler {
	return &Handler{db: db, verify: verify}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/posts/{postId}/comments", h.CreateComment).Methods("POST")
	router.HandleFunc("/posts/{postId}/comments", h.GetComments).Methods("GET")
	router.HandleFunc("/comments/{commentId}", h.UpdateComment).Methods("PUT")
	router.HandleFunc("/comments/{commentId}", h.DeleteComment).Methods("DELETE")
}

// commentDetail never exposes the password or the parent post id.
func commentDetail(c *models.Comment) map[string]interface{} {
	return map[string]interface{}{
		"id":        c.ID,
		"nickname":  c.Nickname,
		"content":   c.Content,
		"createdAt": c.CreatedAt,
	}
}

// CreateComment adds a comment under a post. Only the post identifier's
// syntax is validated; the post's existence is not checked.
func (h *Handler) CreateComment(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	postID, err := strconv.ParseUint(vars["postId"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid post ID", http.StatusBadRequest)
		return
	}

	var req struct {
		Nickname string `json:"nickname"`
		Content  string `json:"content"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Nickname == "" || req.Content == "" || req.Password == "" {
		http.Error(w, "Nickname, content and password are required", http.StatusBadRequest)
		return
	}

	comment := models.Comment{
		PostID:   uint(postID),
		Nickname: req.Nickname,
		Content:  req.Content,
		Password: req.Password,
	}

	if err := h.db.Create(&comment).Error; err != nil {
		log.Printf("Error creating comment: %v", err)
		http.Error(w, "Error creating comment", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(commentDetail(&comment))
}

// GetComments retrieves a post's comments, newest first, with pagination
func (h *Handler) GetComments(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	postID, err := strconv.ParseUint(vars["postId"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid post ID", http.StatusBadRequest)
		return
	}

	pg := utils.ParsePagination(r)

	query := h.db.Model(&models.Comment{}).Where("post_id = ?", postID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		log.Printf("Error counting comments: %v", err)
		http.Error(w, "Error retrieving comments", http.StatusInternalServerError)
		return
	}

	var comments []models.Comment
	if err := pg.Apply(query.Order("created_at DESC")).Find(&comments).Error; err != nil {
		log.Printf("Error retrieving comments: %v", err)
		http.Error(w, "Error retrieving comments", http.StatusInternalServerError)
		return
	}

	data := make([]map[string]interface{}, 0, len(comments))
	for i := range comments {
		data = append(data, commentDetail(&comments[i]))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(utils.PageResponse(pg, total, data))
}

// UpdateComment overwrites nickname/content after verifying the password
func (h *Handler) UpdateComment(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	commentID, err := strconv.ParseUint(vars["commentId"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid comment ID", http.StatusBadRequest)
		return
	}

	var req struct {
		Nickname string `json:"nickname"`
		Content  string `json:"content"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var comment models.Comment
	if err := h.db.First(&comment, commentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "Comment not found", http.StatusNotFound)
			return
		}
		log.Printf("Error retrieving comment: %v", err)
		http.Error(w, "Error retrieving comment", http.StatusInternalServerError)
		return
	}

	if !h.verify(comment.Password, req.Password) {
		http.Error(w, "Password mismatch", http.StatusUnauthorized)
		return
	}

	if req.Nickname != "" {
		comment.Nickname = req.Nickname
	}
	if req.Content != "" {
		comment.Content = req.Content
	}

	if err := h.db.Save(&comment).Error; err != nil {
		log.Printf("Error updating comment: %v", err)
		http.Error(w, "Error updating comment", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(commentDetail(&comment))
}

// DeleteComment removes a comment after verifying its password
func (h *Handler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	commentID, err := strconv.ParseUint(vars["commentId"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid comment ID", http.StatusBadRequest)
		return
	}

	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var comment models.Comment
	if err := h.db.First(&comment, commentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "Comment not found", http.StatusNotFound)
			return
		}
		log.Printf("Error retrieving comment: %v", err)
		http.Error(w, "Error retrieving comment", http.StatusInternalServerError)
		return
	}

	if !h.verify(comment.Password, req.Password) {
		http.Error(w, "Password mismatch", http.StatusUnauthorized)
		return
	}

	if err := h.db.Delete(&comment).Error; err != nil {
		log.Printf("Error deleting comment: %v", err)
		http.Error(w, "Error deleting comment", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"message": "Comment deleted successfully",
	})
}
