package model

import "strings"

// TokenKind is the class of an access token, identified by its prefix.
type TokenKind int

const (
	TokenKindUnknown TokenKind = iota
	// TokenKindAPI is an organization scoped API token.
	TokenKindAPI
	// TokenKindIngest is an API token that can only ingest. It is bound to
	// a single organization on the server side.
	TokenKindIngest
	// TokenKindPersonal is a user scoped token. It needs an organization id
	// when talking to the cloud deployment.
	TokenKindPersonal
)

const (
	APITokenPrefix      = "xaat-"
	IngestTokenPrefix   = "xait-"
	PersonalTokenPrefix = "xapt-"
)

func (k TokenKind) String() string {
	switch k {
	case TokenKindAPI:
		return "api"
	case TokenKindIngest:
		return "ingest"
	case TokenKindPersonal:
		return "personal"
	default:
		return "unknown"
	}
}

// ClassifyToken returns the kind of the given token.
func ClassifyToken(token string) TokenKind {
	switch {
	case strings.HasPrefix(token, APITokenPrefix):
		return TokenKindAPI
	case strings.HasPrefix(token, IngestTokenPrefix):
		return TokenKindIngest
	case strings.HasPrefix(token, PersonalTokenPrefix):
		return TokenKindPersonal
	default:
		return TokenKindUnknown
	}
}

func IsValidToken(token string) bool {
	return ClassifyToken(token) != TokenKindUnknown
}

func IsIngestToken(token string) bool {
	return ClassifyToken(token) == TokenKindIngest
}

func IsPersonalToken(token string) bool {
	return ClassifyToken(token) == TokenKindPersonal
}
