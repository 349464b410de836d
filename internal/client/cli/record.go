package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/nstepa/quizdeck/internal/client/history"
	"github.com/nstepa/quizdeck/internal/client/session"
	pkgapi "github.com/nstepa/quizdeck/pkg/api"
)

// runRecord stores one completed quiz result: locally always, and
// server-side too when a session is active.
func (c *Cli) runRecord(ctx context.Context, args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("usage: record <topic> <score> <total>")
	}
	topic := args[0]
	score, err := strconv.Atoi(args[1])
	if err != nil || score < 0 {
		return fmt.Errorf("score must be a non-negative number")
	}
	total, err := strconv.Atoi(args[2])
	if err != nil || total <= 0 || score > total {
		return fmt.Errorf("total must be a positive number not less than score")
	}

	identity := c.session.CurrentIdentity(ctx)
	if identity.State == session.StateAnonymous {
		return fmt.Errorf("start a guest session or log in before recording results")
	}

	ownerID := identity.UserID
	if identity.State == session.StateGuest {
		ownerID = identity.GuestID
	}

	now := time.Now()
	result := &history.QuizResult{
		ID:             uuid.New().String(),
		OwnerID:        ownerID,
		Topic:          topic,
		Score:          score,
		TotalQuestions: total,
		TakenAt:        now,
	}

	if identity.State == session.StateAuthenticated {
		// user interaction resets the inactivity countdown
		c.session.Tracker().Record(session.ActivityClick)
		if synced := c.saveRemote(ctx, identity.UserID, result); synced {
			result.Synced = true
		}
	} else {
		if err := c.session.RecordGuestResult(ctx, score, now); err != nil {
			return err
		}
	}

	if err := c.history.SaveResult(ctx, result); err != nil {
		return err
	}

	c.io.Printf("✓ Recorded: %s %d/%d\n", topic, score, total)
	if !result.Synced && identity.State == session.StateAuthenticated {
		c.io.Println("(saved locally; server sync failed, will retry on next migration)")
	}

	// a fresh result makes any cached profile stale
	c.userCache.Invalidate(identity.UserID)

	return nil
}

func (c *Cli) saveRemote(ctx context.Context, userID string, r *history.QuizResult) bool {
	sess, ok := c.session.Session(ctx)
	if !ok {
		return false
	}
	deviceID, err := c.session.DeviceID(ctx)
	if err != nil {
		return false
	}

	req := pkgapi.QuizSessionRequest{
		UserID:         userID,
		DeviceID:       deviceID,
		Topic:          r.Topic,
		Score:          r.Score,
		TotalQuestions: r.TotalQuestions,
		TakenAt:        r.TakenAt,
	}
	if _, err := c.api.SaveQuizSession(ctx, sess.Token, req); err != nil {
		c.logger.Warn("failed to save quiz session remotely")
		return false
	}
	return true
}
