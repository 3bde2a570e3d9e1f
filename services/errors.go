package services

import "errors"

var (
	ErrSurveyNotFound       = errors.New("survey not found")
	ErrQuestionNotFound     = errors.New("question not found")
	ErrInvalidAnswerIndex   = errors.New("answer index out of range")
	ErrConcurrencyExhausted = errors.New("tally update did not converge")
	ErrBatchCreate          = errors.New("survey batch create failed")
)
