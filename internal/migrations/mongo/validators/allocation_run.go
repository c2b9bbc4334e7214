package validators

import "go.mongodb.org/mongo-driver/bson"

var assignmentSchema = bson.M{
	"bsonType": "object",
	"required": []string{"group", "start_time", "end_time", "lanes"},
	"properties": bson.M{
		"group":      bson.M{"bsonType": "string"},
		"start_time": bson.M{"bsonType": "date"},
		"end_time":   bson.M{"bsonType": "date"},
		"lanes": bson.M{
			"bsonType": "array",
			"minItems": 1,
			"items":    bson.M{"bsonType": []string{"int", "long"}, "minimum": 1},
		},
		"continued": bson.M{"bsonType": "bool"},
	},
}

var AllocationRunValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"_id",
			"source",
			"settings",
			"assignments",
			"events",
			"stats",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType":  "string",
				"minLength": 36,
				"maxLength": 36,
			},

			"source": bson.M{
				"bsonType": "string",
				"enum":     []string{"request", "day", "stream"},
			},

			"day": bson.M{
				"bsonType": "string",
				"pattern":  `^\d{4}-\d{2}-\d{2}$`,
			},

			"settings": bson.M{
				"bsonType": "object",
				"required": []string{"session_minutes", "lane_count", "slot_start", "slot_count", "time_zone"},
			},

			"assignments": bson.M{
				"bsonType": []string{"array", "null"},
				"items":    assignmentSchema,
			},

			"events": bson.M{
				"bsonType": []string{"array", "null"},
			},

			"stats": bson.M{
				"bsonType": "object",
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
