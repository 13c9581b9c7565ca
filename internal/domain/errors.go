package domain

import "errors"

var (
	// ErrNotAuthenticated is returned when an operation needs a session and none exists.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrInvalidCredentials is returned when the token endpoint rejects a login.
	ErrInvalidCredentials = errors.New("invalid credentials or unverified account")
	// ErrTokenRejected means the server refused the refresh token; the session is over.
	ErrTokenRejected = errors.New("refresh token rejected")

	// ErrNoQuestions indicates an attempt was started without any questions.
	ErrNoQuestions = errors.New("attempt has no questions")
	// ErrOutOfRange is returned by navigation outside the question list.
	ErrOutOfRange = errors.New("question index out of range")
	// ErrUnknownQuestion indicates a question ID that is not part of the attempt.
	ErrUnknownQuestion = errors.New("question not part of attempt")
	// ErrAnswerKind indicates an answer shape that does not match the question type.
	ErrAnswerKind = errors.New("answer does not match question type")
	// ErrUnknownOption indicates a choice key that the question does not offer.
	ErrUnknownOption = errors.New("option not offered by question")
	// ErrNotActive is returned when the attempt is not accepting interaction.
	ErrNotActive = errors.New("attempt is not active")
	// ErrSubmitInFlight rejects a second submit while one is pending.
	ErrSubmitInFlight = errors.New("submission already in progress")
	// ErrAlreadySubmitted is returned once an attempt reached its terminal state.
	ErrAlreadySubmitted = errors.New("attempt already submitted")
	// ErrRevealNotAllowed is returned when the attempt kind forbids revealing answers.
	ErrRevealNotAllowed = errors.New("revealing answers is not allowed for this attempt")
	// ErrAttemptClosed is returned for work that completes after the attempt was torn down.
	ErrAttemptClosed = errors.New("attempt closed")

	// ErrUnknownSubject indicates a subject code outside the practice catalogue.
	ErrUnknownSubject = errors.New("unknown subject")
	// ErrRouteNotFound is returned by the shell for paths outside the route table.
	ErrRouteNotFound = errors.New("route not found")
)
