package testutil

// Fixed credentials for tests only.
const (
	// TestCallbackSecret is 32 bytes of HMAC key material.
	TestCallbackSecret = "test-callback-secret-12345678901"
	// TestAPIKey is accepted by servers built with StaticKeys in tests.
	TestAPIKey = "hp_test_0123456789abcdef0123456789abcdef"
)
