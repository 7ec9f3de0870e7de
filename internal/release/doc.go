// Package release sequences a CVS release of one package.
//
// A Releaser runs four steps against a checkout under <build-dir>/cvswork:
//  1. check out the package's CVS module
//  2. verify every configured branch directory exists
//  3. build one source tarball and `make new-sources` it in every branch
//  4. copy the spec file into every branch
//
// Every step runs to completion before the next begins, and the first
// failure ends the run. Working directories are passed explicitly to each
// command; the process working directory is never changed.
package release
