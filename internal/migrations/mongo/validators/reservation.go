package validators

import "go.mongodb.org/mongo-driver/bson"

var ReservationValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"group", "start_time", "party_size"},
		"additionalProperties": true,
		"properties": bson.M{
			"group": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 100,
			},
			"start_time": bson.M{
				"bsonType": "date",
			},
			"party_size": bson.M{
				"bsonType": []string{"int", "long"},
				"maximum":  500,
			},
			"run_id": bson.M{
				"bsonType": "string",
			},
			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
