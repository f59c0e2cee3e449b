package verification

import (
	"crypto/rand"
	"fmt"
	"html/template"
	"math/big"
	"strings"

	"session_service/internal/models"
)

const (
	CodeLength = 10
	alphabet   = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

	mailSubject = "[cocotalk] Email verification code"
)

var mailTemplate = template.Must(template.New("code").Parse(
	`<div style='margin:100px;'>` +
		`<h1>Hello from cocotalk</h1><br>` +
		`<p>Please enter the code below</p><br>` +
		`<div align='center' style='background-color:#aecdb3a1;border-radius:60% 10%;padding:10px;font-family:verdana;'>` +
		`<h3 style='color:#747474;'>Your code</h3>` +
		`<div style='font-size:130%'>CODE : <strong>{{.}}</strong></div><br/>` +
		`</div></div>`,
))

// GenerateCode returns n random alphanumeric characters.
func GenerateCode(n int) (string, error) {
	var sb strings.Builder
	sb.Grow(n)

	max := big.NewInt(int64(len(alphabet)))
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("verification.GenerateCode: %w", err)
		}
		sb.WriteByte(alphabet[idx.Int64()])
	}

	return sb.String(), nil
}

func CodeMessage(email, code string) (models.Message, error) {
	var body strings.Builder
	if err := mailTemplate.Execute(&body, code); err != nil {
		return models.Message{}, fmt.Errorf("verification.CodeMessage: %w", err)
	}

	return models.Message{
		Email:   email,
		Subject: mailSubject,
		Body:    body.String(),
	}, nil
}
