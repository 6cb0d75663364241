// Package cli implements the urtest command line.
//
// urtest reads a JSON test configuration, merges it onto the built-in
// defaults, derives the bundler configuration, selects the test scripts and
// runs them on a robot controller:
//
//	urtest --config urtest.json
//	urtest --config urtest.json --bundle bundle.json tests/motion
//	urtest --config urtest.json tests/motion/home.test.script
//	urtest --config urtest.json --print-config
//
// Without --config the usage text is printed. The exit code is 0 on success
// or help and 1 on any failure.
package cli
