package mcpserver

// LayoutContract describes the on-disk layout that tools read and write.
const LayoutContract = `# OneMD Notebook Layout

Notebooks, notes and images are plain files under a single root directory:

` + "```" + `text
<root>/                         # <app data dir>/notebooks
  <Notebook>/                   # one directory per notebook
    <Note>/                     # one directory per note
      note.md                   # the note document (UTF-8 Markdown)
      images/                   # the note's assets
        <file>
` + "```" + `

## Rules

1. Every path passed to or returned by a tool is absolute. Use the paths
   returned by list_notebooks and list_notes; do not build them by hand.
2. Notebook and note names are single directory segments. Surrounding
   whitespace is trimmed and "/" or "\" become "_". Creating a name that
   already exists returns the existing entry.
3. A new note starts with a default document. save_note replaces the whole
   document; there is no partial update.
4. save_image keeps only the final component of file_name and overwrites a
   file of the same name. An empty file_name becomes image.png (or
   image.<ext> for data URIs with a known image type).
5. Reference images from note.md with relative links:
   ` + "`" + `![alt](images/<file>)` + "`" + `. Never use absolute paths or file:// URLs.
6. Pass the checksum returned by save_note as if_match on the next save to
   detect concurrent edits.

## Example

` + "```" + `markdown
# Trip plan

Route sketch:

![route](images/route.png)
` + "```" + `
`
