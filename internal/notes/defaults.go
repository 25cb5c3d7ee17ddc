package notes

import "time"

// SampleNoteID identifies the welcome note created on first run.
const SampleNoteID = "sample-1"

// DefaultTemplates returns a fresh copy of the built-in template table.
func DefaultTemplates() map[string]NoteTemplate {
	return map[string]NoteTemplate{
		"blank": {
			Title:   "Untitled Note",
			Content: "",
			Tags:    []string{},
		},
		"meeting": {
			Title: "Meeting Notes",
			Content: `# Meeting Notes

## Attendees
-

## Agenda
1.
2.
3.

## Discussion
-

## Action Items
- [ ]
- [ ]

## Next Steps
-
`,
			Tags: []string{"meeting", "notes"},
		},
		"journal": {
			Title: "Journal Entry",
			Content: `# Journal Entry

## Today's Focus
-

## Thoughts
-

## Gratitude
-

## Tomorrow's Plan
-
`,
			Tags: []string{"journal", "personal"},
		},
		"project": {
			Title: "New Project",
			Content: `# Project

## Overview
-

## Goals
-

## Timeline
- Start:
- Milestones:
- Deadline:

## Tasks
- [ ]
- [ ]
- [ ]

## Resources
-
`,
			Tags: []string{"project", "planning"},
		},
	}
}

const welcomeContent = "# Welcome to Zenotes!\n" +
	"\n" +
	"This is your first note. Here are some things you can do:\n" +
	"\n" +
	"## Features\n" +
	"\n" +
	"- Create new notes with different templates\n" +
	"- Organize notes with tags\n" +
	"- Mark important notes as favorites\n" +
	"- Search through all your notes\n" +
	"- Format your notes with Markdown\n" +
	"\n" +
	"## Markdown Tips\n" +
	"\n" +
	"You can use Markdown to format your notes:\n" +
	"\n" +
	"- **Bold text** with `**double asterisks**`\n" +
	"- *Italic text* with `*single asterisks*`\n" +
	"- # Headers with `# hashtags`\n" +
	"- Lists with `- dashes` or `1. numbers`\n" +
	"- [Links](https://example.com) with `[text](url)`\n" +
	"- Code blocks with ```backticks```\n" +
	"\n" +
	"Enjoy using Zenotes!\n"

// FirstRunState is the snapshot used when nothing usable has been persisted yet.
func FirstRunState(now time.Time) NotesState {
	return NotesState{
		Notes: []Note{
			{
				ID:         SampleNoteID,
				Title:      "Welcome to Zenotes",
				Content:    welcomeContent,
				Tags:       []string{"welcome", "tutorial"},
				IsFavorite: true,
				Created:    now,
				Modified:   now,
			},
		},
		Templates: DefaultTemplates(),
	}
}
