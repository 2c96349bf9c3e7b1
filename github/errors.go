package github

import "errors"

// ErrUserNotFound is returned when the username does not exist on GitHub.
var ErrUserNotFound = errors.New("github: user not found")

// ErrRateLimited is returned when the GitHub API rejects the request with
// 403, typically an exhausted unauthenticated quota.
var ErrRateLimited = errors.New("github: rate limited")

// ErrUpstream is returned for any other GitHub API failure.
var ErrUpstream = errors.New("github: upstream error")

// ErrInsufficientData is returned when a profile yields no analyzable
// content (no languages, topics, descriptions, or READMEs).
var ErrInsufficientData = errors.New("github: not enough profile data to recommend")
