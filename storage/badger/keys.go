package badger

import "strings"

const vectorRecordPrefix = "vrec"

// makeCollectionPrefix returns the key prefix shared by every record in a collection.
func makeCollectionPrefix(collection string) []byte {
	return []byte(vectorRecordPrefix + ":" + collection + ":")
}

// makeVectorRecordKey generates a key for a record within a collection.
func makeVectorRecordKey(collection, id string) []byte {
	return append(makeCollectionPrefix(collection), id...)
}

// validCollectionName rejects names that would make collection prefixes overlap.
func validCollectionName(name string) bool {
	return name != "" && !strings.ContainsAny(name, ":\x00")
}
