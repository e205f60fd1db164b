package benchmark

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
)

// These benchmarks run against a live server. Set KEYVAULT_BENCH_URL (e.g.
// http://localhost:8000), KEYVAULT_BENCH_TOKEN to a session token and
// KEYVAULT_BENCH_SECRET_ID to a secret the token's user may view.
func benchTarget(b *testing.B) (baseURL, token, secretID string) {
	baseURL = os.Getenv("KEYVAULT_BENCH_URL")
	token = os.Getenv("KEYVAULT_BENCH_TOKEN")
	secretID = os.Getenv("KEYVAULT_BENCH_SECRET_ID")
	if baseURL == "" || token == "" || secretID == "" {
		b.Skip("KEYVAULT_BENCH_URL, KEYVAULT_BENCH_TOKEN and KEYVAULT_BENCH_SECRET_ID are required")
	}
	return baseURL, token, secretID
}

func get(b *testing.B, url, token string) {
	r, _ := http.NewRequest("GET", url, nil)
	r.Header.Add("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(r)
	if err != nil {
		b.Fatal(err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b.Fatalf("GET %s: status %d", url, resp.StatusCode)
	}
}

func BenchmarkSecretReads(b *testing.B) {
	baseURL, token, secretID := benchTarget(b)

	// Metadata comes from PostgreSQL only.
	b.Run("GET /api/secrets/{id}", func(b *testing.B) {
		url := fmt.Sprintf("%s/api/secrets/%s", baseURL, secretID)

		b.ReportAllocs()
		b.ResetTimer()

		for i := 0; i < b.N; i++ {
			get(b, url, token)
		}
	})

	// Reveal round-trips to the credential store.
	b.Run("GET /api/secrets/{id}/value", func(b *testing.B) {
		url := fmt.Sprintf("%s/api/secrets/%s/value", baseURL, secretID)

		b.ReportAllocs()
		b.ResetTimer()

		for i := 0; i < b.N; i++ {
			get(b, url, token)
		}
	})
}

func BenchmarkSecretReadsParallel(b *testing.B) {
	baseURL, token, secretID := benchTarget(b)
	url := fmt.Sprintf("%s/api/secrets/%s/value", baseURL, secretID)

	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			get(b, url, token)
		}
	})
}
