package mcpserver

// QuestFormatContract describes the note format that the progression engine
// reads. LLM clients should follow it when creating or editing quests.
const QuestFormatContract = `# rpgify Quest Format Contract

A quest is any Markdown note whose YAML front matter carries ` + "`Type`" + ` or ` + "`Class`" + `.

## Structure

` + "```" + `markdown
---
Type: Quest                 # one of the configured types (Quest, Achievement)
Exp: 10                     # number; experience awarded once the note is complete
Complete by: 2025-07-01     # YYYY-MM-DD; open quests past this date are hidden
Class: Mage                 # one of the configured classes
complete: false             # maintained by rpgify, do not edit by hand
---

# Slay the Dragon

- [ ] Sharpen the sword
- [x] Find the lair
` + "```" + `

## Rules

1. **Keys are case-sensitive.** Use ` + "`Type`, `Class`, `Exp`, `Complete by`" + ` exactly.
   Other keys are kept but ignored.
2. **Values are compared exactly.** ` + "`Class: mage`" + ` does not count toward ` + "`Mage`" + `.
   ` + "`Exp`" + ` must be an unquoted number; ` + "`Exp: \"10\"`" + ` earns nothing.
3. **A note is complete when it has no open task line.** An open task is a line of
   the form ` + "`- [ ] text`" + ` or ` + "`* [ ] text`" + `. A note without tasks is complete.
4. **Open quests need ` + "`Complete by`" + `** to appear on the dashboard, and only
   until that day ends. Completed quests always appear.
5. **Only the checkbox changes** when toggling a task. Use ` + "`toggle_task`" + ` with the
   0-based line number returned by ` + "`read_quest`" + `, and pass its checksum as
   ` + "`if_match`" + ` to avoid overwriting concurrent edits.
6. **Levels:** level n costs ` + "`100 * n * 2^floor((n-1)/10)`" + ` experience. Experience only
   counts for completed notes of that class.
7. **File paths** end with ` + "`.md`" + ` and use forward slashes.
`
