// Package journey replays the bookm.art gallery walkthrough against a
// Directory: a curator deploys a film collection and a character
// collection, mints films for the gallery and a visitor, attaches poster
// assets, nests characters into every film and lets each owner accept what
// was proposed to them. The resulting Report is what the walkthrough
// prints at the end.
package journey
