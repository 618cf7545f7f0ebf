package mcpserver

// DocumentGuideURI is the resource URI of DocumentGuide.
const DocumentGuideURI = "scribe://document-guide"

// DocumentGuide explains to LLM consumers how the workspace names and
// tracks documents, so tool results can be interpreted correctly.
const DocumentGuide = `# Scribe Document Guide

Scribe tracks Markdown documents that live as individual files on disk.

## Identity

- Every document has an opaque ` + "`" + `id` + "`" + ` (a UUID). Pass it to ` + "`" + `read_document` + "`" + `.
- ` + "`" + `title` + "`" + ` is the file name without the ` + "`" + `.md` + "`" + ` extension.
- ` + "`" + `path` + "`" + ` is the absolute file path. Drafts have no path yet.

## States

1. **Draft** (` + "`" + `is_new: true` + "`" + `): created in the editor and not yet named. Its body
   exists only in memory.
2. **Persisted, not loaded**: known from the index or an import; the body is
   read from disk the first time the document is opened or read.
3. **Loaded** (` + "`" + `is_loaded: true` + "`" + `): the body is in memory and may contain edits that
   are not saved yet. ` + "`" + `get_workspace_state` + "`" + ` lists those ids under ` + "`" + `unsaved` + "`" + `.

## Searching

` + "`" + `search_documents` + "`" + ` matches a case-sensitive substring of the title only; it does
not search bodies.

## Outline

` + "`" + `read_document` + "`" + ` also returns the outline parsed from the body: YAML frontmatter,
headings, #tags and [[wikilinks]].
`
