// Simple test backend server to verify L402 gateway functionality.
package main

import (
	"encoding/json"
	"log"
	"net/http"
	"time"
)

func main() {
	mux := http.NewServeMux()

	// Health check, exempt from payment at the gateway
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"status": "healthy",
			"server": "test-backend",
		})
	})

	// Protected endpoint - this is what the gateway charges for
	mux.HandleFunc("/protected-resource", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"message":          "Welcome to the protected resource! Your payment has been verified.",
			"payment_verified": r.Header.Get("X-Payment-Verified"),
			"timestamp":        time.Now().Format(time.RFC3339),
			"headers_received": getRelevantHeaders(r),
		})
	})

	// Root handler
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"service": "Test Backend Server",
			"endpoints": []string{
				"GET /health             - Health check",
				"GET /protected-resource - Payment-gated resource",
			},
		})
	})

	port := ":3000"
	log.Println("Test backend server starting on", port)
	log.Println("Access it through the L402 gateway to exercise the payment flow.")

	log.Fatal(http.ListenAndServe(port, mux))
}

// getRelevantHeaders extracts headers useful for debugging
func getRelevantHeaders(r *http.Request) map[string]string {
	relevant := map[string]string{}
	keys := []string{
		"Authorization",
		"X-Payment-Verified",
		"X-Forwarded-Host",
		"X-Forwarded-For",
		"X-Real-IP",
	}
	for _, key := range keys {
		if val := r.Header.Get(key); val != "" {
			relevant[key] = val
		}
	}
	return relevant
}
