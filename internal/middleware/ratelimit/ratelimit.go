package rateLimit

import (
	"net/http"
	"time"

	httprate "github.com/go-chi/httprate"
)

func SignIn() func(http.Handler) http.Handler {
	return limitByIP(10, 5*time.Minute)
}

func SignUp() func(http.Handler) http.Handler {
	return limitByIP(5, time.Hour)
}

func Reissue() func(http.Handler) http.Handler {
	return limitByIP(30, 10*time.Minute)
}

func SignOut() func(http.Handler) http.Handler {
	return limitByIP(20, 10*time.Minute)
}

func IssueEmailCode() func(http.Handler) http.Handler {
	return limitByIP(3, 10*time.Minute)
}

func CheckEmailCode() func(http.Handler) http.Handler {
	return limitByIP(10, 10*time.Minute)
}

func LastDevice() func(http.Handler) http.Handler {
	return limitByIP(60, time.Minute)
}

func limitByIP(limit int, window time.Duration) func(http.Handler) http.Handler {
	return httprate.LimitByIP(limit, window)
}
