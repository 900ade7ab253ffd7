package group

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

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
	router.HandleFunc("/groups", h.GetGroups).Methods("GET")
	router.HandleFunc("/groups", h.CreateGroup).Methods("POST")
	router.HandleFunc("/groups/{groupId}", h.GetGroup).Methods("GET")
	router.HandleFunc("/groups/{groupId}", h.UpdateGroup).Methods("PUT")
	router.HandleFunc("/groups/{groupId}", h.DeleteGroup).Methods("DELETE")
	router.HandleFunc("/groups/{groupId}/verify-password", h.VerifyPassword).Methods("POST")
	router.HandleFunc("/groups/{groupId}/like", h.LikeGroup).Methods("POST")
	router.HandleFunc("/groups/{groupId}/is-public", h.IsPublic).Methods("GET")
}

// groupDetail is the password-free representation returned by read and
// update endpoints.
func groupDetail(g *models.Group) map[string]interface{} {
	return map[string]interface{}{
		"id":           g.ID,
		"name":         g.Name,
		"imageUrl":     g.ImageUrl,
		"isPublic":     g.IsPublic,
		"likeCount":    g.LikeCount,
		"badges":       g.Badges,
		"postCount":    g.PostCount,
		"createdAt":    g.CreatedAt,
		"introduction": g.Introduction,
	}
}

// GetGroups retrieves groups with pagination, keyword filtering and sorting
func (h *Handler) GetGroups(w http.ResponseWriter, r *http.Request) {
	pg := utils.ParsePagination(r)
	sortBy := r.URL.Query().Get("sortBy")
	keyword := r.URL.Query().Get("keyword")
	isPublic := r.URL.Query().Get("isPublic")

	query := h.db.Model(&models.Group{})
	if keyword != "" {
		pattern := "%" + strings.ToLower(keyword) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(introduction) LIKE ?", pattern, pattern)
	}
	if isPublic != "" {
		query = query.Where("is_public = ?", isPublic == "true")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		log.Printf("Error counting groups: %v", err)
		http.Error(w, "Error retrieving groups", http.StatusInternalServerError)
		return
	}

	switch sortBy {
	case "mostPosted":
		query = query.Order("post_count DESC")
	case "mostLiked":
		query = query.Order("like_count DESC")
	case "mostBadge":
		// Orders on the raw badges column, not the badge count.
		query = query.Order("badges DESC")
	default:
		query = query.Order("created_at DESC")
	}

	var groups []models.Group
	if err := pg.Apply(query).Find(&groups).Error; err != nil {
		log.Printf("Error retrieving groups: %v", err)
		http.Error(w, "Error retrieving groups", http.StatusInternalServerError)
		return
	}

	data := make([]map[string]interface{}, 0, len(groups))
	for _, g := range groups {
		data = append(data, map[string]interface{}{
			"id":           g.ID,
			"name":         g.Name,
			"imageUrl":     g.ImageUrl,
			"isPublic":     g.IsPublic,
			"likeCount":    g.LikeCount,
			"badgeCount":   len(g.Badges),
			"postCount":    g.PostCount,
			"createdAt":    g.CreatedAt,
			"introduction": g.Introduction,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(utils.PageResponse(pg, total, data))
}

// CreateGroup creates a new group
func (h *Handler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name         string `json:"name"`
		Password     string `json:"password"`
		ImageUrl     string `json:"imageUrl"`
		IsPublic     *bool  `json:"isPublic"`
		Introduction string `json:"introduction"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Name == "" || req.Password == "" {
		http.Error(w, "Name and password are required", http.StatusBadRequest)
		return
	}

	isPublic := true
	if req.IsPublic != nil {
		isPublic = *req.IsPublic
	}

	group := models.Group{
		Name:         req.Name,
		Password:     req.Password,
		ImageUrl:     req.ImageUrl,
		IsPublic:     isPublic,
		Introduction: req.Introduction,
		Badges:       pq.StringArray{},
	}

	if err := h.db.Create(&group).Error; err != nil {
		log.Printf("Error creating group: %v", err)
		http.Error(w, "Error creating group", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(group)
}

// GetGroup retrieves a single group
func (h *Handler) GetGroup(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	groupID, err := strconv.ParseUint(vars["groupId"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid group ID", http.StatusBadRequest)
		return
	}

	var group models.Group
	if err := h.db.First(&group, groupID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "Group not found", http.StatusNotFound)
			return
		}
		log.Printf("Error retrieving group: %v", err)
		http.Error(w, "Error retrieving group", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(groupDetail(&group))
}

// UpdateGroup overwrites only the fields supplied with non-empty values.
// No password check is required to update, unlike delete.
func (h *Handler) UpdateGroup(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	groupID, err := strconv.ParseUint(vars["groupId"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid group ID", http.StatusBadRequest)
		return
	}

	var req struct {
		Name         string `json:"name"`
		Password     string `json:"password"`
		ImageUrl     string `json:"imageUrl"`
		IsPublic     *bool  `json:"isPublic"`
		Introduction string `json:"introduction"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var group models.Group
	if err := h.db.First(&group, groupID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "Group not found", http.StatusNotFound)
			return
		}
		log.Printf("Error retrieving group: %v", err)
		http.Error(w, "Error retrieving group", http.StatusInternalServerError)
		return
	}

	if req.Name != "" {
		group.Name = req.Name
	}
	if req.Password != "" {
		group.Password = req.Password
	}
	if req.ImageUrl != "" {
		group.ImageUrl = req.ImageUrl
	}
	if req.IsPublic != nil {
		group.IsPublic = *req.IsPublic
	}
	if req.Introduction != "" {
		group.Introduction = req.Introduction
	}

	if err := h.db.Save(&group).Error; err != nil {
		log.Printf("Error updating group: %v", err)
		http.Error(w, "Error updating group", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(groupDetail(&group))
}

// DeleteGroup removes a group after verifying its password. Child posts are
// not cascaded.
func (h *Handler) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Password == "" {
		http.Error(w, "Password is required", http.StatusBadRequest)
		return
	}

	vars := mux.Vars(r)
	groupID, err := strconv.ParseUint(vars["groupId"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid group ID", http.StatusBadRequest)
		return
	}

	var group models.Group
	if err := h.db.First(&group, groupID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "Group not found", http.StatusNotFound)
			return
		}
		log.Printf("Error retrieving group: %v", err)
		http.Error(w, "Error retrieving group", http.StatusInternalServerError)
		return
	}

	if !h.verify(group.Password, req.Password) {
		http.Error(w, "Password mismatch", http.StatusUnauthorized)
		return
	}

	if err := h.db.Delete(&group).Error; err != nil {
		log.Printf("Error deleting group: %v", err)
		http.Error(w, "Error deleting group", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"message": "Group deleted successfully",
	})
}

// VerifyPassword confirms the group's password without mutating anything
func (h *Handler) VerifyPassword(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	groupID, err := strconv.ParseUint(vars["groupId"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid group ID", http.StatusBadRequest)
		return
	}

	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var group models.Group
	if err := h.db.First(&group, groupID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "Group not found", http.StatusNotFound)
			return
		}
		log.Printf("Error retrieving group: %v", err)
		http.Error(w, "Error retrieving group", http.StatusInternalServerError)
		return
	}

	if !h.verify(group.Password, req.Password) {
		http.Error(w, "Password mismatch", http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"message": "Password verified",
	})
}

// LikeGroup increments the group's like count. Every call increments; there
// is no cap and no toggle.
func (h *Handler) LikeGroup(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	groupID, err := strconv.ParseUint(vars["groupId"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid group ID", http.StatusBadRequest)
		return
	}

	var group models.Group
	if err := h.db.First(&group, groupID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "Group not found", http.StatusNotFound)
			return
		}
		log.Printf("Error retrieving group: %v", err)
		http.Error(w, "Error retrieving group", http.StatusInternalServerError)
		return
	}

	if err := h.db.Model(&models.Group{}).Where("id = ?", groupID).
		UpdateColumn("like_count", gorm.Expr("like_count + ?", 1)).Error; err != nil {
		log.Printf("Error updating like count: %v", err)
		http.Error(w, "Error liking group", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"message": "Group liked successfully",
	})
}

// IsPublic returns only the group's visibility flag
func (h *Handler) IsPublic(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	groupID, err := strconv.ParseUint(vars["groupId"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid group ID", http.StatusBadRequest)
		return
	}

	var group models.Group
	if err := h.db.First(&group, groupID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "Group not found", http.StatusNotFound)
			return
		}
		log.Printf("Error retrieving group: %v", err)
		http.Error(w, "Error retrieving group", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"id":       group.ID,
		"isPublic": group.IsPublic,
	})
}
