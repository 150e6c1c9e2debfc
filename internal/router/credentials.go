package router

// StaticCredentials is a CredentialSource backed by a fixed map of
// provider name to whether its credential is configured, built once at
// startup from Config (spec.md §6's `<provider>_api_key` options).
type StaticCredentials map[string]bool

// HasCredential implements CredentialSource.
func (s StaticCredentials) HasCredential(provider string) bool {
	return s[provider]
}
