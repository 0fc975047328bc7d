// Command pgpbridge drives the OpenPGP bridge from a shell.
package main

func main() {
	Execute()
}
