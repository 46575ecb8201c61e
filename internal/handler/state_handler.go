package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"retroboard/internal/kanban"
	"retroboard/internal/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SessionRunner gives exclusive access to a user's machine for a board.
type SessionRunner interface {
	Do(ctx context.Context, boardID, userID string, fn func(*kanban.Machine) error) error
}

type StateHandler struct {
	boardRepo BoardStore
	sessions  SessionRunner
	logger    *zap.Logger
}

func NewStateHandler(boardRepo BoardStore, sessions SessionRunner, logger *zap.Logger) *StateHandler {
	return &StateHandler{boardRepo: boardRepo, sessions: sessions, logger: logger}
}

type OriginalResponse struct {
	ID         string    `json:"id"`
	Content    string    `json:"content"`
	AuthorID   string    `json:"author_id"`
	AuthorName string    `json:"author_name"`
	CreatedAt  time.Time `json:"created_at"`
}

type CardResponse struct {
	ID         string             `json:"id"`
	Content    string             `json:"content"`
	AuthorID   string             `json:"author_id"`
	AuthorName string             `json:"author_name"`
	CreatedAt  time.Time          `json:"created_at"`
	MergedFrom []OriginalResponse `json:"merged_from"`
}

type ColumnResponse struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Order int            `json:"order"`
	Cards []CardResponse `json:"cards"`
}

type DragResponse struct {
	CardID         string `json:"card_id"`
	SourceColumnID string `json:"source_column_id"`
	OverColumnID   string `json:"over_column_id,omitempty"`
}

type PendingResponse struct {
	Kind         string `json:"kind"`
	ColumnID     string `json:"column_id,omitempty"`
	CardID       string `json:"card_id,omitempty"`
	SourceCardID string `json:"source_card_id,omitempty"`
	TargetCardID string `json:"target_card_id,omitempty"`
}

type BoardStateResponse struct {
	BoardID           string           `json:"board_id"`
	Columns           []ColumnResponse `json:"columns"`
	Dragging          *DragResponse    `json:"dragging,omitempty"`
	MergeTargetCardID string           `json:"merge_target_card_id,omitempty"`
	Pending           *PendingResponse `json:"pending,omitempty"`
}

func toStateResponse(v kanban.View) BoardStateResponse {
	resp := BoardStateResponse{
		BoardID:           v.BoardID,
		Columns:           make([]ColumnResponse, len(v.Columns)),
		MergeTargetCardID: v.MergeTargetCardID,
	}
	for i, col := range v.Columns {
		cards := make([]CardResponse, len(col.Cards))
		for j, card := range col.Cards {
			history := make([]OriginalResponse, len(card.MergedFrom))
			for k, o := range card.MergedFrom {
				history[k] = OriginalResponse{
					ID:         o.ID,
					Content:    o.Content,
					AuthorID:   o.AuthorID,
					AuthorName: o.AuthorName,
					CreatedAt:  o.CreatedAt,
				}
			}
			cards[j] = CardResponse{
				ID:         card.ID,
				Content:    card.Content,
				AuthorID:   card.AuthorID,
				AuthorName: card.AuthorName,
				CreatedAt:  card.CreatedAt,
				MergedFrom: history,
			}
		}
		resp.Columns[i] = ColumnResponse{ID: col.ID, Name: col.Name, Order: col.Order, Cards: cards}
	}
	if v.Dragging != nil {
		resp.Dragging = &DragResponse{
			CardID:         v.Dragging.CardID,
			SourceColumnID: v.Dragging.SourceColumnID,
			OverColumnID:   v.Dragging.OverColumnID,
		}
	}
	if v.Pending.Kind != kanban.PendingNone {
		resp.Pending = &PendingResponse{
			Kind:         string(v.Pending.Kind),
			ColumnID:     v.Pending.ColumnID,
			CardID:       v.Pending.CardID,
			SourceCardID: v.Pending.SourceCardID,
			TargetCardID: v.Pending.TargetCardID,
		}
	}
	return resp
}

// Get godoc
// @Summary      Board columns and cards
// @Tags         Board State
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Board ID"
// @Success      200 {object} BoardStateResponse
// @Failure      403 {object} map[string]string
// @Failure      404 {object} map[string]string
// @Router       /boards/{id}/state [get]
func (h *StateHandler) Get(c *gin.Context) {
	board, userID, ok := ownedBoard(c, h.boardRepo)
	if !ok {
		return
	}

	var view kanban.View
	err := h.sessions.Do(c.Request.Context(), board.ID.String(), userID.String(), func(m *kanban.Machine) error {
		view = m.View()
		return nil
	})
	if err != nil {
		h.logger.Error("failed to open board", zap.String("board_id", board.ID.String()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load board"})
		return
	}

	c.JSON(http.StatusOK, toStateResponse(view))
}

// Dispatch godoc
// @Summary      Apply one user action to the board
// @Tags         Board State
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Board ID"
// @Param        request body kanban.IntentRequest true "Intent"
// @Success      200 {object} BoardStateResponse
// @Failure      400 {object} map[string]string
// @Failure      500 {object} map[string]string
// @Router       /boards/{id}/intents [post]
func (h *StateHandler) Dispatch(c *gin.Context) {
	board, userID, ok := ownedBoard(c, h.boardRepo)
	if !ok {
		return
	}

	var req kanban.IntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	identity, _ := middleware.CurrentUser(c)
	intent, err := req.Intent(kanban.Author{ID: userID.String(), Name: identity.DisplayName})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown intent type"})
		return
	}

	var (
		view      kanban.View
		saveError error
	)
	err = h.sessions.Do(c.Request.Context(), board.ID.String(), userID.String(), func(m *kanban.Machine) error {
		saveError = m.Dispatch(c.Request.Context(), intent)
		view = m.View()
		return nil
	})
	switch {
	case err != nil:
		h.logger.Error("failed to open board", zap.String("board_id", board.ID.String()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load board"})
		return
	case errors.Is(saveError, kanban.ErrUnknownIntent):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown intent type"})
		return
	case saveError != nil:
		h.logger.Error("failed to save board",
			zap.String("board_id", board.ID.String()),
			zap.String("intent", intent.Type()),
			zap.Error(saveError),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save board"})
		return
	}

	c.JSON(http.StatusOK, toStateResponse(view))
}
