package devserver

import (
	"log"

	"github.com/Anish-ai/vaultx"
)

// OTPSender delivers verification codes and password reset tokens.
// Applications provide their own implementation for real delivery.
type OTPSender interface {
	SendOTP(to string, action vaultx.Action, code string) error
	SendPasswordReset(to string, resetToken string) error
}

// ConsoleOTPSender is a development implementation that logs messages to console
type ConsoleOTPSender struct{}

func (c *ConsoleOTPSender) SendOTP(to string, action vaultx.Action, code string) error {
	log.Printf("\n=== EMAIL: Verification code (%s) ===", action)
	log.Printf("To: %s", to)
	log.Printf("Subject: Your VaultX verification code")
	log.Printf("Body: Your code is %s", code)
	log.Printf("======================================\n")
	return nil
}

func (c *ConsoleOTPSender) SendPasswordReset(to string, resetToken string) error {
	log.Printf("\n=== EMAIL: Password Reset ===")
	log.Printf("To: %s", to)
	log.Printf("Subject: Reset your password")
	log.Printf("Body: Use this token to reset your password: %s", resetToken)
	log.Printf("==============================\n")
	return nil
}
