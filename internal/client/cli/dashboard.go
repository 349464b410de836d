package cli

import (
	"context"
	"fmt"

	"github.com/nstepa/quizdeck/internal/client/session"
	pkgapi "github.com/nstepa/quizdeck/pkg/api"
)

// runDashboard renders the profile and quiz history. The profile
// lookup is read-through cached: a hit skips the network entirely.
func (c *Cli) runDashboard(ctx context.Context) error {
	identity := c.session.CurrentIdentity(ctx)

	c.io.Println("=== Dashboard ===")
	c.io.Println()

	switch identity.State {
	case session.StateAuthenticated:
		c.session.Tracker().Record(session.ActivityClick)
		user, err := c.fetchUser(ctx, identity.UserID)
		if err != nil {
			return err
		}
		c.io.Printf("Signed in as: %s (%s)\n", user.Username, user.Email)
		c.io.Printf("Server-side quizzes: %d\n", len(user.QuizHistory))
		c.renderHistory(ctx, identity.UserID)
	case session.StateGuest:
		progress := c.session.GuestProgress(ctx)
		c.io.Printf("Guest: %d quizzes, %d points\n", progress.Quizzes, progress.TotalScore)
		c.renderHistory(ctx, identity.GuestID)
	default:
		return fmt.Errorf("no active session")
	}

	return nil
}

// fetchUser is the cache's read-through call site: consult, miss,
// fetch, populate.
func (c *Cli) fetchUser(ctx context.Context, userID string) (*pkgapi.User, error) {
	if user, ok := c.userCache.Get(userID); ok {
		return user, nil
	}

	sess, ok := c.session.Session(ctx)
	if !ok {
		return nil, fmt.Errorf("no active session")
	}

	user, err := c.api.GetUser(ctx, sess.Token, userID)
	if err != nil {
		return nil, err
	}

	c.userCache.Put(userID, user)
	return user, nil
}

func (c *Cli) renderHistory(ctx context.Context, ownerID string) {
	results, err := c.history.ListByOwner(ctx, ownerID)
	if err != nil {
		c.io.Printf("(failed to load local history: %v)\n", err)
		return
	}
	if len(results) == 0 {
		c.io.Println()
		c.io.Println("No local quiz history yet.")
		return
	}

	c.io.Println()
	c.io.Println("Local history:")
	for _, r := range results {
		marker := " "
		if r.Synced {
			marker = "*"
		}
		c.io.Printf("  %s %-20s %d/%d  %s\n", marker, r.Topic, r.Score, r.TotalQuestions,
			r.TakenAt.Format("2006-01-02 15:04"))
	}
	c.io.Println()
	c.io.Println("(* synced to server)")
}
