package db

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/pysugar/postflow/internal/db/models"
	"gorm.io/gorm"
)

// CreatePost inserts a new draft. Status is always forced to pending
// regardless of what callers might put in the struct.
func (s *Store) CreatePost(content, imagePath, imageURL, topic string) (uint, error) {
	post := models.Post{
		Content:   content,
		ImagePath: imagePath,
		ImageURL:  imageURL,
		Status:    models.StatusPending,
		Topic:     topic,
	}
	if err := s.db.Create(&post).Error; err != nil {
		return 0, err
	}
	return post.ID, nil
}

// GetPost returns the post with the given id, or found=false.
func (s *Store) GetPost(id uint) (models.Post, bool, error) {
	var post models.Post
	err := s.db.First(&post, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Post{}, false, nil
	}
	if err != nil {
		return models.Post{}, false, err
	}
	return post, true, nil
}

// ListPending returns all pending posts, most recently created first.
func (s *Store) ListPending() ([]models.Post, error) {
	var posts []models.Post
	err := s.db.Where("status = ?", models.StatusPending).
		Order("created_at DESC").
		Find(&posts).Error
	return posts, err
}

// CountPending returns the number of posts awaiting a decision.
func (s *Store) CountPending() (int64, error) {
	var n int64
	err := s.db.Model(&models.Post{}).Where("status = ?", models.StatusPending).Count(&n).Error
	return n, err
}

// SetStatus unconditionally updates a post's status and timestamp.
// Transition validity is the approval machine's responsibility, not ours.
func (s *Store) SetStatus(id uint, status string) error {
	return s.db.Model(&models.Post{}).Where("id = ?", id).
		Update("status", status).Error
}

// AppendHistory records a successful publish. Insert-only.
func (s *Store) AppendHistory(postID uint, content, imageURL, externalPostID string) error {
	pid := postID
	return s.db.Create(&models.PostedHistory{
		ID:             uuid.New().String(),
		PostID:         &pid,
		Content:        content,
		ImageURL:       imageURL,
		ExternalPostID: externalPostID,
		PostedAt:       time.Now(),
	}).Error
}

// ApproveAndRecord flips a post to approved and appends the history row in
// one transaction, so the status change and the ledger entry land together.
// Callers must only invoke this after the external publish succeeded.
func (s *Store) ApproveAndRecord(post models.Post, externalPostID string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Post{}).Where("id = ?", post.ID).
			Update("status", models.StatusApproved).Error; err != nil {
			return err
		}
		pid := post.ID
		return tx.Create(&models.PostedHistory{
			ID:             uuid.New().String(),
			PostID:         &pid,
			Content:        post.Content,
			ImageURL:       post.ImageURL,
			ExternalPostID: externalPostID,
			PostedAt:       time.Now(),
		}).Error
	})
}

// HistoryForPost returns the publish ledger entries for a post id.
func (s *Store) HistoryForPost(postID uint) ([]models.PostedHistory, error) {
	var entries []models.PostedHistory
	err := s.db.Where("post_id = ?", postID).Order("posted_at").Find(&entries).Error
	return entries, err
}

// CleanupOlderThan deletes non-pending posts created before the cutoff.
// Pending posts are never swept regardless of age.
func (s *Store) CleanupOlderThan(days int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -days)
	result := s.db.Where("status <> ? AND created_at < ?", models.StatusPending, cutoff).
		Delete(&models.Post{})
	return result.RowsAffected, result.Error
}
