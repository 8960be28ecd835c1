// Package domain contains the core model types, enums, and interfaces of the
// feed visibility engine. It has no dependencies on storage or transport;
// repositories and external services are consumed through the interfaces
// declared here.
package domain
