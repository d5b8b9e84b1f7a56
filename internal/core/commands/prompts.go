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

package commands

import (
	"bytes"
	"fmt"
	"text/template"
)

// DefaultChunkPrompt is sent with every chunk unless the configuration overrides it.
const DefaultChunkPrompt = `You are given one segment of a longer video ({{.Video}}), part {{.Chunk}} of {{.Chunks}}, covering {{.Start}} to {{.End}}.
Write a detailed summary of this segment in Markdown.
- Cover every topic, argument, demonstration and conclusion in the order they appear.
- Keep technical terms, names and numbers exactly as spoken or shown.
- Write formulas in LaTeX using $...$ for inline math and $$...$$ for display math. Never wrap math in backticks.
- Do not add a heading naming the segment or its position; segments are merged afterwards.
- The segment overlaps its neighbours slightly. Summarize the overlap only if it carries information.`

// DefaultRefinePrompt is sent with the merged summary.
const DefaultRefinePrompt = `Below is a summary of a video assembled from the summaries of consecutive segments, separated by horizontal rules.
Rewrite it into one coherent Markdown document:
- Start with a title (level 1 heading) and a one line subtitle in italics.
- Remove repetition caused by overlapping segments and the segment separators.
- Normalize heading levels, lists and emphasis.
- Write formulas in LaTeX using $...$ for inline math and $$...$$ for display math. Never wrap math in backticks or code blocks.
- Do not invent content that is not in the summary.
Return only the document.`

// PromptData is what a chunk prompt template can reference.
type PromptData struct {
	Video  string
	Chunk  int
	Chunks int
	Start  string
	End    string
}

// ParsePrompt compiles a prompt template, falling back to fallback when text is empty.
func ParsePrompt(name string, text string, fallback string) (*template.Template, error) {
	if text == "" {
		text = fallback
	}
	t, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s prompt: %w", name, err)
	}
	return t, nil
}

func renderPrompt(t *template.Template, data interface{}) (string, error) {
	var buffer bytes.Buffer
	if err := t.Execute(&buffer, data); err != nil {
		return "", fmt.Errorf("failed to execute prompt template: %w", err)
	}
	return buffer.String(), nil
}
