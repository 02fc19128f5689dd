// Package hub drives a connected train hub over an abstract byte transport.
//
// Ownership boundary:
// - command sequencing for motor, speaker and light ports
// - inbound notification routing and the attached-port table
// - the scripted demo run
//
// The radio link itself lives behind Transport.
package hub
