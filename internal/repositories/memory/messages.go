package memory

import (
	"context"
	"time"

	"brokebuy/internal/models"
	"brokebuy/internal/repositories"
)

type messageRepo struct{ s *Store }

func (r messageRepo) Create(ctx context.Context, msg *models.Message) error {
	return r.s.do(ctx, "messages.create", func(st *state) error {
		msg.ID = newID(msg.ID)
		msg.CreatedAt = stamp(msg.CreatedAt)
		st.messages = append(st.messages, *msg)
		return nil
	})
}

func (r messageRepo) SentSince(ctx context.Context, senderID string, since time.Time) (repositories.WindowCount, error) {
	var count repositories.WindowCount
	err := r.s.do(ctx, "messages.sent_since", func(st *state) error {
		for _, m := range st.messages {
			if m.SenderID == senderID {
				created := m.CreatedAt
				inWindow(&created, since, &count)
			}
		}
		return nil
	})
	return count, err
}
