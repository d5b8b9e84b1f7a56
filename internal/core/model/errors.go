// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package model

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a video's pipeline stopped. A kind is itself an error
// so callers can match with errors.Is(err, model.KindUpload).
type ErrorKind string

const (
	KindConfiguration ErrorKind = "ConfigurationError"
	KindExtraction    ErrorKind = "ExtractionError"
	KindUpload        ErrorKind = "UploadError"
	KindSummarization ErrorKind = "SummarizationError"
	KindRefinement    ErrorKind = "RefinementError"
	KindCleanup       ErrorKind = "CleanupError"
)

func (k ErrorKind) Error() string {
	return string(k)
}

// Failures reported by a Generator.
var (
	ErrTimeout       = errors.New("generation timed out")
	ErrRemote        = errors.New("remote service error")
	ErrEmptyResponse = errors.New("empty response from model")
)

// ErrInvalidDuration is returned when a probed duration cannot be planned.
var ErrInvalidDuration = errors.New("invalid video duration")

// StageError records the stage and video a failure belongs to.
type StageError struct {
	Kind  ErrorKind
	Stage string
	Video string
	Err   error
}

// NewStageError wraps err with its classification.
func NewStageError(kind ErrorKind, stage string, video string, err error) *StageError {
	return &StageError{Kind: kind, Stage: stage, Video: video, Err: err}
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s in %s for %s: %v", e.Kind, e.Stage, e.Video, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *StageError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// KindOf returns the kind of the first StageError or ErrorKind found in err's tree,
// or an empty kind when err is not classified.
func KindOf(err error) ErrorKind {
	var se *StageError
	if errors.As(err, &se) {
		return se.Kind
	}
	var k ErrorKind
	if errors.As(err, &k) {
		return k
	}
	return ""
}

// NewConfigurationError builds an error that is fatal before any video is touched.
func NewConfigurationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", KindConfiguration, fmt.Sprintf(format, args...))
}
