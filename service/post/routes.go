package post

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/jogakzip/jogakzip-server/cmd/models"
	"github.com/jogakzip/jogakzip-server/cmd/utils"
	"github.com/lib/pq"
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
	router.HandleFunc("/groups/{groupId}/posts", h.CreatePost).Methods("POST")
	router.HandleFunc("/groups/{groupId}/posts", h.GetPosts).Methods("GET")
	router.HandleFunc("/posts/{postId}", h.GetPost).Methods("GET")
	router.HandleFunc("/posts/{postId}", h.UpdatePost).Methods("PUT")
	router.HandleFunc("/posts/{postId}", h.DeletePost).Methods("DELETE")
	router.HandleFunc("/posts/{postId}/verify-password", h.VerifyPassword).Methods("POST")
	router.HandleFunc("/posts/{postId}/like", h.LikePost).Methods("POST")
	router.HandleFunc("/posts/{postId}/is-public", h.IsPublic).Methods("GET")
}

// CreatePost creates a post under a group. Only the group identifier's
// syntax is validated; the group's existence and the supplied groupPassword
// are not checked.
func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	groupID, err := strconv.ParseUint(vars["groupId"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid group ID", http.StatusBadRequest)
		return
	}

	var req struct {
		Nickname      string     `json:"nickname"`
		Title         string     `json:"title"`
		Content       string     `json:"content"`
		PostPassword  string     `json:"postPassword"`
		GroupPassword string     `json:"groupPassword"`
		ImageUrl      string     `json:"imageUrl"`
		Tags          []string   `json:"tags"`
		Location      string     `json:"location"`
		Moment        *time.Time `json:"moment"`
		IsPublic      *bool      `json:"isPublic"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Nickname == "" || req.Title == "" || req.Content == "" ||
		req.PostPassword == "" || req.GroupPassword == "" {
		http.Error(w, "Nickname, title, content, postPassword and groupPassword are required", http.StatusBadRequest)
		return
	}

	moment := time.Now()
	if req.Moment != nil {
		moment = *req.Moment
	}
	isPublic := true
	if req.IsPublic != nil {
		isPublic = *req.IsPublic
	}
	tags := pq.StringArray{}
	if req.Tags != nil {
		tags = pq.StringArray(req.Tags)
	}

	post := models.Post{
		GroupID:       uint(groupID),
		Nickname:      req.Nickname,
		Title:         req.Title,
		Content:       req.Content,
		PostPassword:  req.PostPassword,
		GroupPassword: req.GroupPassword,
		ImageUrl:      req.ImageUrl,
		Tags:          tags,
		Location:      req.Location,
		Moment:        moment,
		IsPublic:      isPublic,
	}

	if err := h.db.Create(&post).Error; err != nil {
		log.Printf("Error creating post: %v", err)
		http.Error(w, "Error creating post", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"id":           post.ID,
		"groupId":      post.GroupID,
		"nickname":     post.Nickname,
		"title":        post.Title,
		"content":      post.Content,
		"imageUrl":     post.ImageUrl,
		"tags":         post.Tags,
		"location":     post.Location,
		"moment":       post.Moment,
		"isPublic":     post.IsPublic,
		"likeCount":    post.LikeCount,
		"commentCount": post.CommentCount,
		"createdAt":    post.CreatedAt,
	})
}

// GetPosts retrieves a group's posts with pagination, keyword filtering and
// sorting. Pages carry full records, not a trimmed projection.
func (h *Handler) GetPosts(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	groupID, err := strconv.ParseUint(vars["groupId"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid group ID", http.StatusBadRequest)
		return
	}

	pg := utils.ParsePagination(r)
	sortBy := r.URL.Query().Get("sortBy")
	keyword := r.URL.Query().Get("keyword")
	isPublic := r.URL.Query().Get("isPublic")

	query := h.db.Model(&models.Post{}).Where("group_id = ?", groupID)
	if keyword != "" {
		pattern := "%" + strings.ToLower(keyword) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(content) LIKE ?", pattern, pattern)
	}
	if isPublic != "" {
		query = query.Where("is_public = ?", isPublic == "true")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		log.Printf("Error counting posts: %v", err)
		http.Error(w, "Error retrieving posts", http.StatusInternalServerError)
		return
	}

	switch sortBy {
	case "mostCommented":
		query = query.Order("comment_count DESC")
	case "mostLiked":
		query = query.Order("like_count DESC")
	default:
		query = query.Order("created_at DESC")
	}

	var posts []models.Post
	if err := pg.Apply(query).Find(&posts).Error; err != nil {
		log.Printf("Error retrieving posts: %v", err)
		http.Error(w, "Error retrieving posts", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(utils.PageResponse(pg, total, posts))
}

// GetPost retrieves a single post as a full record
func (h *Handler) GetPost(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	postID, err := strconv.ParseUint(vars["postId"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid post ID", http.StatusBadRequest)
		return
	}

	var post models.Post
	if err := h.db.First(&post, postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "Post not found", http.StatusNotFound)
			return
		}
		log.Printf("Error retrieving post: %v", err)
		http.Error(w, "Error retrieving post", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(post)
}

// UpdatePost overwrites only the fields supplied with non-empty values.
// No password is required; any caller holding the id may update any field,
// postPassword included, while delete does require the password. The client
// depends on this asymmetry.
func (h *Handler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	postID, err := strconv.ParseUint(vars["postId"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid post ID", http.StatusBadRequest)
		return
	}

	var req struct {
		Nickname     string     `json:"nickname"`
		Title        string     `json:"title"`
		Content      string     `json:"content"`
		PostPassword string     `json:"postPassword"`
		ImageUrl     string     `json:"imageUrl"`
		Tags         []string   `json:"tags"`
		Location     string     `json:"location"`
		Moment       *time.Time `json:"moment"`
		IsPublic     *bool      `json:"isPublic"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var post models.Post
	if err := h.db.First(&post, postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "Post not found", http.StatusNotFound)
			return
		}
		log.Printf("Error retrieving post: %v", err)
		http.Error(w, "Error retrieving post", http.StatusInternalServerError)
		return
	}

	if req.Nickname != "" {
		post.Nickname = req.Nickname
	}
	if req.Title != "" {
		post.Title = req.Title
	}
	if req.Content != "" {
		post.Content = req.Content
	}
	if req.PostPassword != "" {
		post.PostPassword = req.PostPassword
	}
	if req.ImageUrl != "" {
		post.ImageUrl = req.ImageUrl
	}
	if req.Tags != nil {
		post.Tags = pq.StringArray(req.Tags)
	}
	if req.Location != "" {
		post.Location = req.Location
	}
	if req.Moment != nil {
		post.Moment = *req.Moment
	}
	if req.IsPublic != nil {
		post.IsPublic = *req.IsPublic
	}

	if err := h.db.Save(&post).Error; err != nil {
		log.Printf("Error updating post: %v", err)
		http.Error(w, "Error updating post", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(post)
}

// DeletePost removes a post after verifying its password
func (h *Handler) DeletePost(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	postID, err := strconv.ParseUint(vars["postId"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid post ID", http.StatusBadRequest)
		return
	}

	// An absent body is an absent password, which is just a mismatch.
	var req struct {
		PostPassword string `json:"postPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var post models.Post
	if err := h.db.First(&post, postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "Post not found", http.StatusNotFound)
			return
		}
		log.Printf("Error retrieving post: %v", err)
		http.Error(w, "Error retrieving post", http.StatusInternalServerError)
		return
	}

	if !h.verify(post.PostPassword, req.PostPassword) {
		http.Error(w, "Password mismatch", http.StatusUnauthorized)
		return
	}

	if err := h.db.Delete(&post).Error; err != nil {
		log.Printf("Error deleting post: %v", err)
		http.Error(w, "Error deleting post", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"message": "Post deleted successfully",
	})
}

// VerifyPassword compares against postPassword, never groupPassword
func (h *Handler) VerifyPassword(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	postID, err := strconv.ParseUint(vars["postId"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid post ID", http.StatusBadRequest)
		return
	}

	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var post models.Post
	if err := h.db.First(&post, postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "Post not found", http.StatusNotFound)
			return
		}
		log.Printf("Error retrieving post: %v", err)
		http.Error(w, "Error retrieving post", http.StatusInternalServerError)
		return
	}

	if !h.verify(post.PostPassword, req.Password) {
		http.Error(w, "Password mismatch", http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"message": "Password verified",
	})
}

// LikePost increments the post's like count
func (h *Handler) LikePost(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	postID, err := strconv.ParseUint(vars["postId"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid post ID", http.StatusBadRequest)
		return
	}

	var post models.Post
	if err := h.db.First(&post, postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "Post not found", http.StatusNotFound)
			return
		}
		log.Printf("Error retrieving post: %v", err)
		http.Error(w, "Error retrieving post", http.StatusInternalServerError)
		return
	}

	if err := h.db.Model(&models.Post{}).Where("id = ?", postID).
		UpdateColumn("like_count", gorm.Expr("like_count + ?", 1)).Error; err != nil {
		log.Printf("Error updating like count: %v", err)
		http.Error(w, "Error liking post", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"message": "Post liked successfully",
	})
}

// IsPublic returns only the post's visibility flag
func (h *Handler) IsPublic(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	postID, err := strconv.ParseUint(vars["postId"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid post ID", http.StatusBadRequest)
		return
	}

	var post models.Post
	if err := h.db.First(&post, postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "Post not found", http.StatusNotFound)
			return
		}
		log.Printf("Error retrieving post: %v", err)
		http.Error(w, "Error retrieving post", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"id":       post.ID,
		"isPublic": post.IsPublic,
	})
}
