// Package model defines the domain entities and API types for hibari.
package model

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxTitleLen is the maximum task title length after trimming.
const MaxTitleLen = 500

// Task is an owned item of work. Every access path filters by
// (id, user_id) jointly; a task is never addressable by id alone.
type Task struct {
	ID          int64     `json:"id"`
	UserID      string    `json:"user_id"`
	Title       string    `json:"title"`
	Description *string   `json:"description,omitempty"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// StatusFilter selects which tasks a list operation returns.
type StatusFilter string

const (
	StatusAll       StatusFilter = "all"
	StatusPending   StatusFilter = "pending"
	StatusCompleted StatusFilter = "completed"
)

// ParseStatusFilter validates a status filter string. Empty means "all".
func ParseStatusFilter(s string) (StatusFilter, error) {
	switch StatusFilter(s) {
	case "", StatusAll:
		return StatusAll, nil
	case StatusPending:
		return StatusPending, nil
	case StatusCompleted:
		return StatusCompleted, nil
	default:
		return "", fmt.Errorf("invalid status filter: %q", s)
	}
}

// ValidateTitle trims the title and checks the 1..MaxTitleLen bound.
// Returns the trimmed title.
func ValidateTitle(title string) (string, error) {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return "", fmt.Errorf("title cannot be empty")
	}
	if utf8.RuneCountInString(trimmed) > MaxTitleLen {
		return "", fmt.Errorf("title exceeds %d characters", MaxTitleLen)
	}
	return trimmed, nil
}
