// Varusta - Role-Driven EC2 Provisioning
// Declare roles. Plan. Apply.
package main

func main() {
	Execute()
}
