package cli

import "context"

func (c *Cli) runLogout(ctx context.Context) error {
	wasGuest := c.session.IsGuestSession(ctx)

	if err := c.session.Logout(ctx); err != nil {
		return err
	}

	c.io.Println("✓ Logged out.")
	if wasGuest {
		c.io.Println("Your guest progress has been kept and will resume with the next guest session.")
	}
	return nil
}
