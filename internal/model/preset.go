package model

// PresetType selects which protocol a preset speaks.
type PresetType string

const (
	TypeREST      PresetType = "REST"
	TypeGraphQL   PresetType = "GraphQL"
	TypeWebSocket PresetType = "WebSocket"
)

// Preset is a saved request definition. Fields that are only meaningful
// for one type (Query for REST, GraphQLQuery for GraphQL, WSMessage for
// WebSocket) are kept when the type changes; the executor ignores the
// ones that do not apply.
type Preset struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Type             PresetType `json:"type"`
	Method           string     `json:"method,omitempty"`
	URL              string     `json:"url"`
	Headers          string     `json:"headers,omitempty"` // JSON object text
	Query            string     `json:"query,omitempty"`   // newline-delimited key=value
	Body             string     `json:"body,omitempty"`
	GraphQLQuery     string     `json:"graphqlQuery,omitempty"`
	GraphQLVariables string     `json:"graphqlVariables,omitempty"`
	WSMessage        string     `json:"wsMessage,omitempty"`

	// Pointers so "never set" is distinguishable from an explicit false.
	IncludeBearer *bool `json:"includeBearer,omitempty"`
	IncludeAPIKey *bool `json:"includeApiKey,omitempty"`
}

// BearerEnabled reports whether the global bearer token should be
// attached. Defaults to true when the toggle was never set.
func (p Preset) BearerEnabled() bool {
	if p.IncludeBearer == nil {
		return true
	}
	return *p.IncludeBearer
}

// APIKeyEnabled reports whether the global API key should be attached.
// Defaults to false when the toggle was never set.
func (p Preset) APIKeyEnabled() bool {
	if p.IncludeAPIKey == nil {
		return false
	}
	return *p.IncludeAPIKey
}

// AuthConfig is the process-wide auth shared by all presets.
type AuthConfig struct {
	BearerToken string `json:"bearerToken"`
	APIKeyName  string `json:"apiKeyName"`
	APIKeyValue string `json:"apiKeyValue"`
}

// DefaultAuth returns the empty-token auth config.
func DefaultAuth() AuthConfig {
	return AuthConfig{APIKeyName: "x-api-key"}
}

// DefaultPresets returns the built-in preset library used when no stored
// state exists or the stored blob fails to parse.
func DefaultPresets() []Preset {
	return []Preset{
		{
			ID:      "rest-jsonplaceholder-posts",
			Name:    "JSONPlaceholder: List Posts",
			Type:    TypeREST,
			Method:  "GET",
			URL:     "https://jsonplaceholder.typicode.com/posts",
			Headers: "{\n  \"accept\": \"application/json\"\n}",
		},
		{
			ID:      "rest-jsonplaceholder-create",
			Name:    "JSONPlaceholder: Create Post",
			Type:    TypeREST,
			Method:  "POST",
			URL:     "https://jsonplaceholder.typicode.com/posts",
			Headers: "{\n  \"content-type\": \"application/json\"\n}",
			Body:    "{\n  \"title\": \"QA demo\",\n  \"body\": \"Testing create flow\",\n  \"userId\": 7\n}",
		},
		{
			ID:      "rest-httpbin-delay",
			Name:    "httpbin: Delayed Response",
			Type:    TypeREST,
			Method:  "GET",
			URL:     "https://httpbin.org/delay/2",
			Headers: "{\n  \"accept\": \"application/json\"\n}",
		},
		{
			ID:               "graphql-countries",
			Name:             "Countries GraphQL: Country List",
			Type:             TypeGraphQL,
			Method:           "POST",
			URL:              "https://countries.trevorblades.com/",
			Headers:          "{\n  \"content-type\": \"application/json\"\n}",
			GraphQLQuery:     "query GetCountries {\n  countries {\n    code\n    name\n    emoji\n    capital\n  }\n}",
			GraphQLVariables: "{}",
		},
		{
			ID:        "ws-postman-echo",
			Name:      "Postman Echo: WebSocket",
			Type:      TypeWebSocket,
			Method:    "CONNECT",
			URL:       "wss://ws.postman-echo.com/raw",
			WSMessage: "hello websocket",
		},
	}
}
