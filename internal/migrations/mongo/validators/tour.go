package validators

import "go.mongodb.org/mongo-driver/bson"

var TourValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"name", "price", "destination", "duration_days", "available_slots", "created_at"},
		"additionalProperties": true,
		"properties": bson.M{
			"_id":             bson.M{"bsonType": "objectId"},
			"name":            bson.M{"bsonType": "string", "minLength": 2, "maxLength": 200},
			"description":     bson.M{"bsonType": "string", "maxLength": 2000},
			"price":           bson.M{"bsonType": "number", "minimum": 0},
			"destination":     bson.M{"bsonType": "string", "minLength": 2, "maxLength": 100},
			"duration_days":   bson.M{"bsonType": []string{"int", "long"}, "minimum": 1, "maximum": 365},
			"available_slots": bson.M{"bsonType": []string{"int", "long"}, "minimum": 0},
			"created_at":      bson.M{"bsonType": "date"},
			"updated_at":      bson.M{"bsonType": "date"},
		},
	},
}
