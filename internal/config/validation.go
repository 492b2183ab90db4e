package config

import "fmt"

// minJWTSecretLength is the minimum byte length accepted for the HS256
// signing secret.
const minJWTSecretLength = 32

// Validate checks the configuration for fatal misconfiguration.
// Called by Load; fail-fast so the server never starts half-configured.
func (c *Config) Validate() error {
	if c.OpenAIAPIKey == "" {
		return fmt.Errorf("%w: set OPENAI_API_KEY", ErrMissingOpenAIKey)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("%w: set JWT_SECRET", ErrMissingJWTSecret)
	}
	if len(c.JWTSecret) < minJWTSecretLength {
		return fmt.Errorf("%w: must be at least %d bytes, got %d",
			ErrInvalidJWTSecret, minJWTSecretLength, len(c.JWTSecret))
	}
	if c.EmbeddingDimensions <= 0 || c.EmbeddingDimensions > 16000 {
		return fmt.Errorf("%w: got %d", ErrInvalidEmbeddingDimensions, c.EmbeddingDimensions)
	}
	if c.TokenExpiryMinutes <= 0 || c.TokenExpiryMinutes > 24*60 {
		return fmt.Errorf("%w: got %d minutes", ErrInvalidTokenExpiry, c.TokenExpiryMinutes)
	}
	if c.PostgresHost == "" {
		return ErrInvalidPostgresHost
	}
	if c.PostgresPort <= 0 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: got %d", ErrInvalidPostgresPort, c.PostgresPort)
	}
	if c.MaxUploadSize <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidMaxUploadSize, c.MaxUploadSize)
	}
	if c.BatchSize <= 0 || c.BatchSize > 100 {
		return fmt.Errorf("%w: got %d", ErrInvalidBatchSize, c.BatchSize)
	}
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		return fmt.Errorf("%w: got %d", ErrInvalidServerPort, c.ServerPort)
	}
	return nil
}
