// Package builder produces the source tarball that is uploaded to the
// lookaside cache of every CVS branch.
//
// GitBuilder reads the committed tree with go-git instead of shelling out
// to `git archive`, so it needs no git binary at release time or in tests.
package builder
