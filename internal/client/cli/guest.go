package cli

import (
	"context"
	"fmt"
)

func (c *Cli) runGuest(ctx context.Context) error {
	if c.session.IsAuthenticated(ctx) {
		return fmt.Errorf("already signed in; log out before starting a guest session")
	}
	if c.session.IsGuestSession(ctx) {
		c.io.Println("A guest session is already active.")
		return nil
	}

	guest, err := c.session.CreateGuestSession(ctx)
	if err != nil {
		return err
	}

	c.io.Println("✓ Guest session started.")
	c.io.Printf("Guest ID: %s\n", guest.ID)
	c.io.Printf("Expires:  %s\n", guest.ExpiresAt.Format("2006-01-02 15:04"))
	c.io.Println()
	c.io.Println("Your quiz progress is kept locally and can be moved to an")
	c.io.Println("account later by signing up and logging in.")

	return nil
}
