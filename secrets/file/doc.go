/*
Package file implements a secrets.Store on top of a crud.Store, typically the
filesystem.

Entries are YAML documents grouped by access group and service. The payload is
base64 encoded so that arbitrary bytes survive the round trip.

	<base>/
	  <access group>/
	    <service>/
	      <entry id>.yaml

# Example

	84RRJLK9H4.io.cloudeng.KeychainHelper/
	  mail/
	    3f1c0e4b9a2d7c18.yaml

	account: alice
	service: mail
	label: work
	data: c2VjcmV0MTIz

Entries within a service are considered in file name order and the first one
matching the account and label wins.
*/
package file
