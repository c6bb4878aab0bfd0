package per

import (
	"fmt"
	"slices"
	"time"

	"github.com/ViniciusResende/PerguntaUFMG/backend"
	"github.com/ViniciusResende/PerguntaUFMG/core"
)

type roomRecord struct {
	Title     string                    `json:"title"`
	AuthorID  string                    `json:"authorId"`
	EndedAt   string                    `json:"endedAt,omitempty"`
	Questions map[string]questionRecord `json:"questions,omitempty"`
}

type questionRecord struct {
	Content       string               `json:"content"`
	Author        core.QuestionAuthor  `json:"author"`
	IsAnonymous   bool                 `json:"isAnonymous"`
	IsAnswered    bool                 `json:"isAnswered"`
	IsHighlighted bool                 `json:"isHighlighted"`
	Likes         map[string]core.Like `json:"likes,omitempty"`
}

// transformRoom hydrates a raw room record for requesterID. Questions come
// newest first; ids are time ordered so reverse id order is reverse
// creation order.
func transformRoom(code string, raw any, requesterID string) (*core.Room, error) {
	var rec roomRecord
	if err := backend.Decode(raw, &rec); err != nil {
		return nil, fmt.Errorf("per: decode room %s: %w", code, err)
	}
	room := &core.Room{
		ID:        code,
		Title:     rec.Title,
		AuthorID:  rec.AuthorID,
		Questions: make([]core.Question, 0, len(rec.Questions)),
	}
	if rec.EndedAt != "" {
		t, err := time.Parse(time.RFC3339Nano, rec.EndedAt)
		if err != nil {
			return nil, fmt.Errorf("per: room %s has invalid endedAt %q: %w", code, rec.EndedAt, err)
		}
		room.EndedAt = &t
	}

	ids := make([]string, 0, len(rec.Questions))
	for id := range rec.Questions {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	slices.Reverse(ids)

	for _, id := range ids {
		q := rec.Questions[id]
		room.Questions = append(room.Questions, core.Question{
			ID:            id,
			Content:       q.Content,
			Author:        q.Author,
			IsAnonymous:   q.IsAnonymous,
			IsAnswered:    q.IsAnswered,
			IsHighlighted: q.IsHighlighted,
			LikesCount:    len(q.Likes),
			LikeID:        ownLike(q.Likes, requesterID),
		})
	}
	return room, nil
}

func ownLike(likes map[string]core.Like, requesterID string) string {
	if requesterID == "" {
		return ""
	}
	ids := make([]string, 0, len(likes))
	for id, l := range likes {
		if l.AuthorID == requesterID {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return ""
	}
	// first like in creation order, matching a scan of the raw collection
	return slices.Min(ids)
}
