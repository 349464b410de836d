package cli

import (
	"context"

	"github.com/nstepa/quizdeck/internal/client/migrate"
	"github.com/nstepa/quizdeck/internal/client/session"
	"github.com/nstepa/quizdeck/internal/client/storage"
)

func (c *Cli) runStatus(ctx context.Context) error {
	identity := c.session.CurrentIdentity(ctx)

	c.io.Println("=== Status ===")
	c.io.Println()
	c.io.Printf("Identity: %s\n", identity.State)

	switch identity.State {
	case session.StateAuthenticated:
		if sess, ok := c.session.Session(ctx); ok {
			c.io.Printf("User:            %s\n", sess.UserID)
			c.io.Printf("Session expires: %s\n", sess.ExpiresAt.Format("2006-01-02 15:04:05"))
		}
	case session.StateGuest:
		if guest, ok := c.session.GuestIdentity(ctx); ok {
			c.io.Printf("Guest ID:      %s\n", guest.ID)
			c.io.Printf("Guest expires: %s\n", guest.ExpiresAt.Format("2006-01-02 15:04:05"))
		}
	case session.StateAnonymous:
		c.io.Println("No active session. Run 'quizdeck login' or 'quizdeck guest'.")
	}

	if progress := c.session.GuestProgress(ctx); progress != (storage.GuestProgress{}) {
		c.io.Println()
		c.io.Printf("Guest progress: %d quizzes, %d points\n", progress.Quizzes, progress.TotalScore)
		if !progress.LastQuizDate.IsZero() {
			c.io.Printf("Last quiz:      %s\n", progress.LastQuizDate.Format("2006-01-02 15:04"))
		}
	}

	if snap := c.migrator.Progress(); snap.Status != migrate.StatusIdle {
		c.io.Println()
		c.io.Printf("Migration: %s (%d/%d)\n", snap.Status, snap.CompletedSteps, snap.TotalSteps)
		if snap.Error != "" {
			c.io.Printf("  error: %s\n", snap.Error)
		}
	}

	return nil
}
