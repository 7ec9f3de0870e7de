// Package specfile locates and reads RPM packaging spec files.
//
// Only the preamble tags the release workflow needs are parsed (Name,
// Version, Release). The file itself is copied verbatim into every CVS
// branch, so no rewriting happens here.
package specfile
