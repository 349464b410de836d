package cli

import (
	"context"
	"fmt"
)

func (c *Cli) runSignup(ctx context.Context) error {
	c.io.Println("=== Sign up ===")
	c.io.Println()

	email, err := c.io.ReadInput("Email: ")
	if err != nil {
		return fmt.Errorf("failed to read email: %w", err)
	}

	username, err := c.io.ReadInput("Username: ")
	if err != nil {
		return fmt.Errorf("failed to read username: %w", err)
	}

	password, err := c.io.ReadPassword("Password: ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}

	resp, err := c.session.Signup(ctx, email, username, password)
	if err != nil {
		return err
	}

	c.io.Println()
	c.io.Println("✓ Account created!")
	if resp.Message != "" {
		c.io.Println(resp.Message)
	}
	c.io.Println("Run 'quizdeck login' to sign in.")

	return nil
}
