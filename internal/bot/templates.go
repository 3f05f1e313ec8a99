package bot

// Static reply pools used when generation fails and for ambient messages.
// Ambient replies never touch the LLM at all.

var welcomePool = []string{
	"Welcome to the community! Drop a track when you're ready, we love first uploads.",
	"Hey, great to have you here! The weekly feedback thread is a good place to start.",
	"Welcome aboard! Check the pinned post for the community guidelines and sample packs.",
}

var fileSizePool = []string{
	"Heads up: uploads work best under 50MB. A 320kbps MP3 usually fits a full track.",
	"If your upload is failing, try bouncing to MP3 first. WAV stems are better shared as a zip link.",
	"Pro tip: keep preview clips short, full stems can go in the collab section.",
}

var genericPool = []string{
	"Nice one! Keep the tracks coming.",
	"Love the energy in this thread. Keep creating!",
	"Solid post. The community grows when people share, thanks for contributing.",
}

var ambientPool = []string{
	"Your resident bot is lurking as always. Post your work-in-progress, the room is friendly today.",
	"Quiet in here... someone drop a loop and let's get a chain going.",
	"Reminder from your resident bot: back up your project files. Future you says thanks.",
	"Still listening! Tag me if you want a quick ear on your mix.",
}
