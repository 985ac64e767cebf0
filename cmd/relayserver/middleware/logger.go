package middleware

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// Logger matches the teacher's walletserver/middleware/logger.go request
// logging shape exactly, unchanged beyond its new import path.
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logrus.Infof("%s %s %s", r.Method, r.RequestURI, time.Since(start))
	})
}
