/*
Package tracker contains the sequencer service: the single owner of a
project's three sequencers, their transports and the note players that turn
playhead movement into note triggers.

All mutation goes through Service methods, which serialize on one lock. The
tick loop (Run), scheduled callbacks (Audition) and the methods called by a
user interface all enter through that lock, so there is only ever one writer.
Messages going out of the service, such as page changes, warnings and
export progress, are sent through a Broker without blocking. Edits and
settings changes can be reverted with Undo.

Per-role operations take a kmusic.Role. For example, s.AddNote(kmusic.Drum,
36, 0, 1, 1) places a one step kick drum hit at the beginning of the drum
pattern, and s.ExtendPage(kmusic.Drum, true) adds a page that repeats the
last one.
*/
package tracker
